package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/MrEthical07/trackauth/password"
)

var (
	scoreEmail     string
	scoreFirstName string
	scoreLastName  string

	genOptions = password.DefaultGenerateOptions()
	genCount   int

	hashAlgorithm string
	hashEnv       = viper.New()
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Score, generate and hash passwords offline",
}

var passwordScoreCmd = &cobra.Command{
	Use:   "score [password]",
	Short: "Score a password against the registration policy",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readSecret(cmd, args, "Password: ")
		if err != nil {
			return err
		}

		s := password.Score(pw, password.Context{
			Email:     scoreEmail,
			FirstName: scoreFirstName,
			LastName:  scoreLastName,
		})
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "score:   %d/100\n", s.Score)
		fmt.Fprintf(out, "valid:   %t\n", s.Valid)
		fmt.Fprintf(out, "entropy: %.1f bits\n", password.EntropyBits(pw))
		printList(out, "error", s.Errors)
		printList(out, "warning", s.Warnings)
		printList(out, "suggestion", s.Suggestions)
		return nil
	},
}

var passwordGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate random passwords that satisfy the policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genCount < 1 {
			return errors.New("--count must be at least 1")
		}
		for i := 0; i < genCount; i++ {
			pw, err := password.Generate(genOptions)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pw)
		}
		return nil
	},
}

var passwordHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Hash a password read from the terminal or stdin",
	Long: `Hash a password for seeding accounts by hand. The bcrypt cost comes from
--cost, then HASH_COST, then the built-in default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readSecret(cmd, nil, "Password: ")
		if err != nil {
			return err
		}

		cost := hashEnv.GetInt("hash_cost")
		h, err := password.NewHasher(password.Config{
			Algorithm:     password.Algorithm(hashAlgorithm),
			Cost:          func() int { return cost },
			MaxConcurrent: 1,
		})
		if err != nil {
			return err
		}
		encoded, err := h.Hash(cmd.Context(), pw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), encoded)
		return nil
	},
}

// readSecret takes the password from args, a terminal prompt without echo,
// or the first line of stdin, in that order.
func readSecret(cmd *cobra.Command, args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}

func printList(w io.Writer, label string, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "%s: %s\n", label, item)
	}
}

func init() {
	rootCmd.AddCommand(passwordCmd)
	passwordCmd.AddCommand(passwordScoreCmd, passwordGenerateCmd, passwordHashCmd)

	passwordScoreCmd.Flags().StringVar(&scoreEmail, "email", "", "Account email the password must not echo")
	passwordScoreCmd.Flags().StringVar(&scoreFirstName, "first-name", "", "Account first name")
	passwordScoreCmd.Flags().StringVar(&scoreLastName, "last-name", "", "Account last name")

	f := passwordGenerateCmd.Flags()
	f.IntVarP(&genOptions.Length, "length", "l", genOptions.Length, "Password length")
	f.BoolVar(&genOptions.ExcludeLower, "no-lower", false, "Leave out lowercase letters")
	f.BoolVar(&genOptions.ExcludeUpper, "no-upper", false, "Leave out uppercase letters")
	f.BoolVar(&genOptions.ExcludeDigits, "no-digits", false, "Leave out digits")
	f.BoolVar(&genOptions.ExcludeSpecial, "no-special", false, "Leave out special characters")
	f.IntVarP(&genCount, "count", "n", 1, "Number of passwords to print")

	passwordHashCmd.Flags().StringVar(&hashAlgorithm, "algorithm", string(password.AlgorithmBcrypt), "bcrypt or argon2id")
	passwordHashCmd.Flags().Int("cost", password.DefaultCost, "bcrypt cost")
	hashEnv.SetDefault("hash_cost", password.DefaultCost)
	hashEnv.AutomaticEnv()
	_ = hashEnv.BindPFlag("hash_cost", passwordHashCmd.Flags().Lookup("cost"))
}
