package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yamcs/yamcs-client-go/api/yamcs"
	"github.com/yamcs/yamcs-client-go/model"
)

func (c *cli) newLoginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to a Yamcs server",
		Long:  "Login to a Yamcs server. The password is read from stdin when --password is not given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				fmt.Fprint(c.errOut, "Password: ")
				line, err := bufio.NewReader(c.in).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			opts := append(c.clientOptions(cfg), yamcs.WithCredentials(model.Credentials{
				Username: username,
				Password: password,
			}))
			yc, err := yamcs.NewClient(cmd.Context(), opts...)
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			cfg.Auth = yc.Credentials()
			if c.address != "" {
				cfg.Core.Address = c.address
			}
			if err := cfg.save(); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Login succeeded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout of a Yamcs server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Auth = nil
			if err := cfg.save(); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logout succeeded")
			return nil
		},
	}
}
