package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photonest",
	Short: "Photo backend with face identity clustering",
	Long: `PhotoNest is a photo management backend. Uploaded photos go through an
external vision analyzer; detected faces are clustered by embedding
similarity into persistent person identities, and every person gets a
quality-selected representative face thumbnail.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)
}

func initEnv() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
