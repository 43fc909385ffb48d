// Package envconfig loads process configuration from the environment (and an
// optional file named by CONFIG_PATH) through viper, and turns it into a
// trackauth.Config plus the server settings the CLI needs.
package envconfig
