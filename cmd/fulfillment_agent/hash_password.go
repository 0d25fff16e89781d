package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/fulfillment-agent/internal/config"
)

var (
	hashCost     int
	hashPassword string
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for OPERATOR_PASSWORD_HASH",
	Long: `Hashes the operator password with bcrypt, appending PASSWORD_PEPPER when set. Reads the
password from --password or, when omitted, from the first line of stdin.`,
	RunE: runHashPassword,
}

func init() {
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	hashPasswordCmd.Flags().StringVar(&hashPassword, "password", "", "Password to hash (read from stdin when empty)")
	rootCmd.AddCommand(hashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	password := hashPassword
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password given")
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	cfg := &config.Config{BcryptCost: hashCost, PasswordPepper: os.Getenv("PASSWORD_PEPPER")}
	passwords, err := cfg.Password()
	if err != nil {
		return err
	}
	hash, err := passwords.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
