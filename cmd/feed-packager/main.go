package main

import "github.com/oshokin/app-updater/cmd/feed-packager/cmd"

func main() {
	cmd.Execute()
}
