package main

import "github.com/clearspend/expense-approval/cmd"

func main() {
	cmd.Execute()
}
