package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aura-scribe-backend/internal/config"
	"aura-scribe-backend/internal/logging"
	"aura-scribe-backend/internal/services"
)

func runPersona(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	logger, err := logging.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	persona, err := services.NewPersonaLoader(cfg.Persona, logger).LoadPersona(cmd.Context())
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), persona)
	return err
}
