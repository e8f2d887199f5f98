package main

import "github.com/zaki-44/bio-hackathon/cmd/biomarketctl/commands"

func main() {
	commands.Execute()
}
