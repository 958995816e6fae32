package main

import "baburchi-admin/internal/cmd"

func main() {
	cmd.Execute()
}
