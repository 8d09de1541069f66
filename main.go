// echochat is a terminal client for comparing LLM providers side by side.
package main

import "github.com/linanwx/echochat/cmd"

func main() {
	cmd.Execute()
}
