package main

import "github.com/yogaportal/attendance-kiosk/cmd"

func main() {
	cmd.Execute()
}
