package main

import "github.com/quillpost/apiserver/cmd"

func main() {
	cmd.Execute()
}
