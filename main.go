package main

import "github.com/expenseflow/expense-approval/cmd"

func main() {
	cmd.Execute()
}
