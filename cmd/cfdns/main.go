package main

import (
	"github.com/lite-lake/infra-cfdns/internal/constants"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/logger"
	"github.com/lite-lake/infra-cfdns/internal/interfaces/cli"
)

func main() {
	logger.Init(logger.ConfigFromEnv(constants.EnvPrefix))

	cli.Execute()
}
