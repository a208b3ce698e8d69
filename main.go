// Package main is the entry point for the highlight-clipper CLI, which cuts
// Deadlock highlight clips out of a streamer's Twitch VODs.
package main

import "github.com/pable/highlight-clipper/cmd"

func main() {
	cmd.Execute()
}
