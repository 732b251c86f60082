package main

import "github.com/jeremyhahn/go-certificate-authority/pkg/cmd"

func main() {
	cmd.Execute()
}
