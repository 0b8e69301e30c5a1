package main

import "github.com/eegeren/cortexa-ai/client/cortexa-cli/cmd"

func main() {
	cmd.Execute()
}
