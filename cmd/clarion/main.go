package main

import (
	"clarion/cmd/cmd"
	"clarion/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
