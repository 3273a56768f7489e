// Package main contains the CLI for driving a TegDB log file directly:
// one subcommand per operation, a flags struct per subcommand.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	tegdb "github.com/minifish-org/tegdb-sub001"
	"github.com/minifish-org/tegdb-sub001/internal/config"
	"github.com/minifish-org/tegdb-sub001/internal/dblog"
	"github.com/minifish-org/tegdb-sub001/internal/resultfmt"
)

type execFlags struct {
	config string
	format string
}

type replFlags struct {
	config string
	format string
}

type dumpFlags struct {
	format string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "tegdb",
		Short: "Embedded relational database CLI",
	}

	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(execCmd())
	rootCmd.AddCommand(replCmd())
	rootCmd.AddCommand(dumpCmd())
	rootCmd.AddCommand(compactCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Create the log file at path if it does not already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := tegdb.Open(args[0])
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer db.Close()
			fmt.Printf("opened %s\n", args[0])
			return nil
		},
	}
}

func execCmd() *cobra.Command {
	flags := &execFlags{}
	cmd := &cobra.Command{
		Use:   "exec <path> <sql>",
		Short: "Run a single SQL statement against the log file at path",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runExec(args[0], args[1], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "Path to a tegdb.toml config file")
	cmd.Flags().StringVarP(&flags.format, "format", "o", "human", "Output format: human or json")
	return cmd
}

func runExec(path, sql string, flags *execFlags) error {
	cfg, err := loadConfig(flags.config)
	if err != nil {
		return err
	}
	db, err := tegdb.OpenWithConfig(path, cfg)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer db.Close()

	formatter, err := resultfmt.NewFormatter(flags.format)
	if err != nil {
		return err
	}
	return runOne(db, formatter, sql)
}

func runOne(db *tegdb.Database, formatter resultfmt.Formatter, sql string) error {
	if isQuery(sql) {
		rows, err := db.Query(sql)
		if err != nil {
			return err
		}
		text, err := formatter.Format(tegdb.Result{Rows: rows})
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}
	res, err := db.Execute(sql)
	if err != nil {
		return err
	}
	text, err := formatter.Format(res)
	if err != nil {
		return err
	}
	fmt.Print(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Println()
	}
	return nil
}

func isQuery(sql string) bool {
	trimmed := strings.TrimSpace(sql)
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "select")
}

func replCmd() *cobra.Command {
	flags := &replFlags{}
	cmd := &cobra.Command{
		Use:   "repl <path>",
		Short: "Start an interactive SQL session against the log file at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRepl(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "Path to a tegdb.toml config file")
	cmd.Flags().StringVarP(&flags.format, "format", "o", "human", "Output format: human or json")
	return cmd
}

func runRepl(path string, flags *replFlags) error {
	cfg, err := loadConfig(flags.config)
	if err != nil {
		return err
	}
	db, err := tegdb.OpenWithConfig(path, cfg)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer db.Close()

	formatter, err := resultfmt.NewFormatter(flags.format)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("tegdb %s: enter SQL statements, .exit to quit\n", path)
	var tx *tegdb.Tx
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()
	for {
		fmt.Print("tegdb> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ".exit" || line == ".quit" {
			break
		}
		tx2, err := runReplLine(db, tx, formatter, line)
		tx = tx2
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// runReplLine executes one REPL input line, threading the explicit
// transaction opened by a BEGIN statement through subsequent lines until
// COMMIT or ROLLBACK closes it.
func runReplLine(db *tegdb.Database, tx *tegdb.Tx, formatter resultfmt.Formatter, line string) (*tegdb.Tx, error) {
	upper := strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(line), ";"))
	switch upper {
	case "BEGIN":
		if tx != nil {
			return tx, fmt.Errorf("a transaction is already active")
		}
		tx2, err := db.Begin()
		if err != nil {
			return nil, err
		}
		fmt.Println("transaction started")
		return tx2, nil
	case "COMMIT":
		if tx == nil {
			return nil, fmt.Errorf("no transaction is active")
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		fmt.Println("committed")
		return nil, nil
	case "ROLLBACK":
		if tx == nil {
			return nil, fmt.Errorf("no transaction is active")
		}
		if err := tx.Rollback(); err != nil {
			return nil, err
		}
		fmt.Println("rolled back")
		return nil, nil
	}
	if tx != nil {
		return tx, runOneTx(tx, formatter, line)
	}
	return nil, runOne(db, formatter, line)
}

func runOneTx(tx *tegdb.Tx, formatter resultfmt.Formatter, sql string) error {
	if isQuery(sql) {
		rows, err := tx.Query(sql)
		if err != nil {
			return err
		}
		text, err := formatter.Format(tegdb.Result{Rows: rows})
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}
	res, err := tx.Execute(sql)
	if err != nil {
		return err
	}
	text, err := formatter.Format(res)
	if err != nil {
		return err
	}
	fmt.Print(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Println()
	}
	return nil
}

func compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact <path>",
		Short: "Rewrite the log file keeping only live entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := tegdb.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %q: %w", args[0], err)
			}
			defer db.Close()
			if err := db.Compact(); err != nil {
				return fmt.Errorf("compact %q: %w", args[0], err)
			}
			fmt.Printf("compacted %s\n", args[0])
			return nil
		},
	}
}

func dumpCmd() *cobra.Command {
	flags := &dumpFlags{}
	cmd := &cobra.Command{
		Use:   "dump <path>",
		Short: "Print every table's rows in the log file at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runDump(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.format, "format", "o", "human", "Output format: human or json")
	return cmd
}

func runDump(path string, flags *dumpFlags) error {
	db, err := tegdb.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer db.Close()

	formatter, err := resultfmt.NewFormatter(flags.format)
	if err != nil {
		return err
	}

	for _, table := range db.TableSchemas() {
		fmt.Printf("-- %s\n", table)
		rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s", table))
		if err != nil {
			return fmt.Errorf("dump table %q: %w", table, err)
		}
		text, err := formatter.Format(tegdb.Result{Rows: rows})
		if err != nil {
			return err
		}
		fmt.Print(text)
	}
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func init() {
	dblog.Init(dblog.Config{Level: dblog.InfoLevel})
}
