package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/gear6io/metabridge/client"
	"github.com/gear6io/metabridge/client/config"
	"github.com/gear6io/metabridge/pkg/errors"
)

func main() {
	flags := &connectionFlags{}

	rootCmd := &cobra.Command{
		Use:   "metabridge",
		Short: "Version-portable Hive metastore client",
		Long: `Metabridge provides a command-line interface for Hive metastore catalogs
across protocol versions 0.12 through 1.2. One binary speaks every
supported protocol; pick the release with --metastore-version.

Examples:
metabridge query "SHOW TABLES"
metabridge database list "sa*"
metabridge table describe sales.events
metabridge table partitions sales.events --filter "ds = 20130101"
metabridge --metastore-version 0.13.1 shell`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.host, "host", "", "metastore host")
	rootCmd.PersistentFlags().IntVar(&flags.port, "port", 0, "metastore port")
	rootCmd.PersistentFlags().StringVar(&flags.version, "metastore-version", "", "metastore protocol version (0.12.0 through 1.2.1)")
	rootCmd.PersistentFlags().StringVar(&flags.user, "user", "", "username reported to the metastore")
	rootCmd.PersistentFlags().StringSliceVar(&flags.groups, "groups", nil, "group names reported to the metastore")
	rootCmd.PersistentFlags().StringVar(&flags.database, "database", "", "database to start in")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "socket timeout")
	rootCmd.PersistentFlags().StringArrayVar(&flags.settings, "set", nil, "session setting override (key=value, repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug and wire-level logging")

	rootCmd.AddCommand(
		createQueryCommand(flags),
		createExecCommand(flags),
		createShellCommand(flags),
		createDatabaseCommand(flags),
		createTableCommand(flags),
		createLoadCommand(flags),
		createPingCommand(flags),
		createResetCommand(flags),
	)

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(describeError(err))
		os.Exit(1)
	}
}

// connectionFlags collects the persistent flag values that override the
// loaded configuration. Dialing is deferred to the command that needs it,
// so help output and flag errors never touch the network.
type connectionFlags struct {
	configPath string
	host       string
	port       int
	version    string
	user       string
	groups     []string
	database   string
	timeout    time.Duration
	settings   []string
	verbose    bool
}

func (f *connectionFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.LoadFromFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if f.host != "" {
		cfg.Metastore.Host = f.host
	}
	if f.port != 0 {
		cfg.Metastore.Port = f.port
	}
	if f.version != "" {
		cfg.Metastore.Version = f.version
	}
	if f.user != "" {
		cfg.Metastore.Username = f.user
	}
	if len(f.groups) > 0 {
		cfg.Metastore.Groups = f.groups
	}
	if f.timeout > 0 {
		cfg.Metastore.Timeout = f.timeout
	}
	if len(f.settings) > 0 {
		if cfg.Metastore.Settings == nil {
			cfg.Metastore.Settings = make(map[string]string, len(f.settings))
		}
		for _, kv := range f.settings {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("invalid --set value %q, expected key=value", kv)
			}
			cfg.Metastore.Settings[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connect loads configuration, sets up logging, and dials the metastore.
func (f *connectionFlags) connect(ctx context.Context) (*client.Client, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := config.SetupLogger(cfg)
	if err != nil {
		return nil, err
	}

	var opts []client.Option
	if f.verbose {
		wire, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithWireLogger(wire))
	}

	c, err := client.New(ctx, cfg.Metastore, logger, opts...)
	if err != nil {
		return nil, err
	}

	if f.database != "" && f.database != c.CurrentDatabase() {
		if err := c.SetCurrentDatabase(ctx, f.database); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// commandContext returns a context that is canceled on SIGINT or SIGTERM,
// so an interrupted command tears its connection down cleanly.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func createQueryCommand(flags *connectionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run a SQL query and print its result rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			rows, err := c.RunQuery(ctx, args[0])
			if err != nil {
				// The row cap produces both rows and an error; show
				// what arrived, then flag the ambiguity.
				if errors.AsError(err).Code == client.ErrResultsMaybeTruncated {
					printRows(rows)
					pterm.Warning.Println("result hit the row cap, output may be incomplete")
					return nil
				}
				return err
			}

			printRows(rows)
			return nil
		},
	}
}

func createExecCommand(flags *connectionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [statement]",
		Short: "Execute a metastore command or DDL statement",
		Long: `Exec routes a statement the way a session would: set, reset, dfs, add,
and delete are handled as session commands, everything else goes to the
catalog's driver.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxRows, _ := cmd.Flags().GetInt("max-rows")

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			rows, err := c.RunCommand(ctx, args[0], maxRows)
			if err != nil {
				return err
			}

			printRows(rows)
			return nil
		},
	}

	cmd.Flags().Int("max-rows", 1000, "maximum number of result rows, -1 for no cap")
	return cmd
}

func createShellCommand(flags *connectionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive metastore shell",
		Long: `Shell opens an interactive prompt against the metastore. When stdin is
not a terminal it instead executes commands line by line, so scripts can
be piped in: metabridge shell < setup.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxRows, _ := cmd.Flags().GetInt("max-rows")

			c, err := flags.connect(context.Background())
			if err != nil {
				return err
			}
			defer c.Close()

			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return runScript(c, os.Stdin, maxRows)
			}
			return runShell(c, maxRows)
		},
	}

	cmd.Flags().Int("max-rows", 1000, "maximum number of result rows per command")
	return cmd
}

func createDatabaseCommand(flags *connectionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "database",
		Aliases: []string{"db"},
		Short:   "Database management commands",
	}

	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, _ := cmd.Flags().GetString("location")

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.CreateDatabase(ctx, &client.Database{Name: args[0], Location: location}); err != nil {
				return err
			}
			pterm.Success.Printfln("created database %s", args[0])
			return nil
		},
	}
	createCmd.Flags().String("location", "", "database location URI")

	listCmd := &cobra.Command{
		Use:   "list [pattern]",
		Short: "List databases matching a pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			names, err := c.ListDatabases(ctx, pattern)
			if err != nil {
				return err
			}
			printRows(names)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Show one database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			db, err := c.GetDatabase(ctx, args[0])
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("database %s does not exist", args[0])
			}

			data := pterm.TableData{
				{"Name", db.Name},
				{"Location", db.Location},
			}
			return pterm.DefaultTable.WithData(data).Render()
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop [name]",
		Short: "Drop a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cascade, _ := cmd.Flags().GetBool("cascade")
			keepData, _ := cmd.Flags().GetBool("keep-data")

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.DropDatabase(ctx, args[0], !keepData, cascade); err != nil {
				return err
			}
			pterm.Success.Printfln("dropped database %s", args[0])
			return nil
		},
	}
	dropCmd.Flags().Bool("cascade", false, "drop contained tables first")
	dropCmd.Flags().Bool("keep-data", false, "keep the backing files")

	cmd.AddCommand(createCmd, listCmd, showCmd, dropCmd)
	return cmd
}

func createTableCommand(flags *connectionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Table management commands",
	}

	listCmd := &cobra.Command{
		Use:   "list [database]",
		Short: "List tables in a database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db := ""
			if len(args) == 1 {
				db = args[0]
			}

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			names, err := c.ListTables(ctx, db)
			if err != nil {
				return err
			}
			printRows(names)
			return nil
		},
	}

	describeCmd := &cobra.Command{
		Use:   "describe [table]",
		Short: "Describe table structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			db, name := splitTarget(args[0])
			tbl, err := c.GetTable(ctx, db, name)
			if err != nil {
				return err
			}
			if tbl == nil {
				return fmt.Errorf("table %s does not exist", args[0])
			}
			return renderTable(tbl)
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop [table]",
		Short: "Drop a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keepData, _ := cmd.Flags().GetBool("keep-data")

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			db, name := splitTarget(args[0])
			if err := c.DropTable(ctx, db, name, !keepData); err != nil {
				return err
			}
			pterm.Success.Printfln("dropped table %s", args[0])
			return nil
		},
	}
	dropCmd.Flags().Bool("keep-data", false, "keep the backing files")

	partitionsCmd := &cobra.Command{
		Use:   "partitions [table]",
		Short: "List table partitions",
		Long: `Partitions lists a table's partitions. With --filter only matching
partitions are returned; the filter is pushed down to the catalog on
protocols that support it and evaluated client side on older ones.

Example filter: ds = 20130101 AND hr != 07`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			db, name := splitTarget(args[0])
			tbl, err := c.GetTable(ctx, db, name)
			if err != nil {
				return err
			}
			if tbl == nil {
				return fmt.Errorf("table %s does not exist", args[0])
			}

			var parts []*client.Partition
			if filter != "" {
				preds, err := parseFilter(filter)
				if err != nil {
					return err
				}
				parts, err = c.GetPartitionsByFilter(ctx, tbl, preds)
				if err != nil {
					return err
				}
			} else {
				parts, err = c.GetAllPartitions(ctx, tbl)
				if err != nil {
					return err
				}
			}

			return renderPartitions(tbl, parts)
		},
	}
	partitionsCmd.Flags().String("filter", "", "partition filter (column op value clauses joined with AND)")

	cmd.AddCommand(listCmd, describeCmd, dropCmd, partitionsCmd)
	return cmd
}

func createLoadCommand(flags *connectionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Move files into tables and partitions",
	}

	tableCmd := &cobra.Command{
		Use:   "table [source] [table]",
		Short: "Load files into a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetBool("replace")
			holdDDLTime, _ := cmd.Flags().GetBool("hold-ddl-time")

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.LoadTable(ctx, args[0], args[1], replace, holdDDLTime); err != nil {
				return err
			}
			pterm.Success.Printfln("loaded %s into %s", args[0], args[1])
			return nil
		},
	}
	tableCmd.Flags().Bool("replace", false, "replace existing contents")
	tableCmd.Flags().Bool("hold-ddl-time", false, "keep the table's current DDL time")

	partitionCmd := &cobra.Command{
		Use:   "partition [source] [table] [spec]",
		Short: "Load files into one partition",
		Long: `Partition loads files into the partition named by spec, creating it if
needed. The spec binds every partition column in order, for example
ds=20130101,hr=00.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetBool("replace")
			holdDDLTime, _ := cmd.Flags().GetBool("hold-ddl-time")
			inherit, _ := cmd.Flags().GetBool("inherit-table-specs")
			skewed, _ := cmd.Flags().GetBool("skewed-subdir")

			spec, err := parseSpec(args[2])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.LoadPartition(ctx, args[0], args[1], spec, replace, holdDDLTime, inherit, skewed); err != nil {
				return err
			}
			pterm.Success.Printfln("loaded %s into partition %s of %s", args[0], args[2], args[1])
			return nil
		},
	}
	partitionCmd.Flags().Bool("replace", false, "replace existing contents")
	partitionCmd.Flags().Bool("hold-ddl-time", false, "keep the table's current DDL time")
	partitionCmd.Flags().Bool("inherit-table-specs", true, "inherit storage settings from the table")
	partitionCmd.Flags().Bool("skewed-subdir", false, "store skewed values as subdirectories")

	dynamicCmd := &cobra.Command{
		Use:   "dynamic [source] [table] [spec]",
		Short: "Load files into dynamically discovered partitions",
		Long: `Dynamic loads files whose partition values are discovered from the data
itself. Static columns are bound in the spec, dynamic ones are left
empty: ds=20130101,hr= loads every hour under one day.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetBool("replace")
			holdDDLTime, _ := cmd.Flags().GetBool("hold-ddl-time")
			numDP, _ := cmd.Flags().GetInt("num-dynamic")
			listBucketing, _ := cmd.Flags().GetBool("list-bucketing")

			spec, err := parseSpec(args[2])
			if err != nil {
				return err
			}
			if numDP == 0 {
				for _, b := range spec {
					if b.Value == "" {
						numDP++
					}
				}
			}

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.LoadDynamicPartitions(ctx, args[0], args[1], spec, replace, numDP, holdDDLTime, listBucketing); err != nil {
				return err
			}
			pterm.Success.Printfln("loaded %s into %s", args[0], args[1])
			return nil
		},
	}
	dynamicCmd.Flags().Bool("replace", false, "replace existing contents")
	dynamicCmd.Flags().Bool("hold-ddl-time", false, "keep the table's current DDL time")
	dynamicCmd.Flags().Int("num-dynamic", 0, "number of dynamic partition columns (0 derives it from the spec)")
	dynamicCmd.Flags().Bool("list-bucketing", false, "enable list bucketing on the load")

	cmd.AddCommand(tableCmd, partitionCmd, dynamicCmd)
	return cmd
}

func createPingCommand(flags *connectionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the metastore",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			start := time.Now()
			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Ping(ctx); err != nil {
				return err
			}
			pterm.Success.Printfln("metastore is reachable (protocol %s, %s)",
				c.Version(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func createResetCommand(flags *connectionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every database and table",
		Long: `Reset drops every table in the default database and every other
database entirely. It exists for wiping test fixtures, never for
production catalogs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return fmt.Errorf("reset wipes the whole catalog; pass --force to confirm")
			}

			ctx, cancel := commandContext()
			defer cancel()

			c, err := flags.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Reset(ctx); err != nil {
				return err
			}
			pterm.Success.Println("catalog reset")
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "confirm the wipe")
	return cmd
}

func printRows(rows []string) {
	for _, row := range rows {
		fmt.Println(row)
	}
}

// renderTable prints a table definition in sections: identity and storage
// first, then columns, partition columns, and properties.
func renderTable(t *client.Table) error {
	info := pterm.TableData{
		{"Database", t.Database},
		{"Name", t.Name},
		{"Type", t.Type.String()},
	}
	if t.Location != nil {
		info = append(info, []string{"Location", *t.Location})
	}
	if t.InputFormat != nil {
		info = append(info, []string{"Input format", *t.InputFormat})
	}
	if t.OutputFormat != nil {
		info = append(info, []string{"Output format", *t.OutputFormat})
	}
	if t.Serde != nil {
		info = append(info, []string{"Serde", *t.Serde})
	}
	if err := pterm.DefaultTable.WithData(info).Render(); err != nil {
		return err
	}

	cols := pterm.TableData{{"Column", "Type", "Comment"}}
	for _, col := range t.Columns {
		cols = append(cols, []string{col.Name, col.Type, col.Comment})
	}
	fmt.Println()
	if err := pterm.DefaultTable.WithHasHeader().WithData(cols).Render(); err != nil {
		return err
	}

	if len(t.PartitionColumns) > 0 {
		parts := pterm.TableData{{"Partition column", "Type", "Comment"}}
		for _, col := range t.PartitionColumns {
			parts = append(parts, []string{col.Name, col.Type, col.Comment})
		}
		fmt.Println()
		if err := pterm.DefaultTable.WithHasHeader().WithData(parts).Render(); err != nil {
			return err
		}
	}

	if len(t.Properties) > 0 {
		keys := make([]string, 0, len(t.Properties))
		for k := range t.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		props := pterm.TableData{{"Property", "Value"}}
		for _, k := range keys {
			props = append(props, []string{k, t.Properties[k]})
		}
		fmt.Println()
		if err := pterm.DefaultTable.WithHasHeader().WithData(props).Render(); err != nil {
			return err
		}
	}

	if t.ViewText != nil {
		fmt.Println()
		fmt.Println("View definition:")
		fmt.Println(*t.ViewText)
	}

	return nil
}

// renderPartitions prints partitions as a table whose columns follow the
// owning table's partition-column order.
func renderPartitions(t *client.Table, parts []*client.Partition) error {
	header := make([]string, 0, len(t.PartitionColumns)+1)
	for _, col := range t.PartitionColumns {
		header = append(header, col.Name)
	}
	header = append(header, "Location")

	data := pterm.TableData{header}
	for _, p := range parts {
		row := make([]string, 0, len(header))
		row = append(row, p.Values...)
		row = append(row, p.Storage.Location)
		data = append(data, row)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// describeError flattens an error to one line, keeping the structured code
// and the server's SQL state when present.
func describeError(err error) string {
	e := errors.AsError(err)

	var b strings.Builder
	b.WriteString(e.Message)
	if state, ok := e.Context["sqlstate"]; ok {
		fmt.Fprintf(&b, " [sqlstate %s]", state)
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	fmt.Fprintf(&b, " (%s)", e.Code)
	return b.String()
}

// runScript executes newline-separated commands from r, stopping at the
// first failure. Blank lines and -- comments are skipped.
func runScript(c *client.Client, r io.Reader, maxRows int) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "--") {
			continue
		}

		rows, err := c.RunCommand(context.Background(), strings.TrimSuffix(input, ";"), maxRows)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		printRows(rows)
	}
	return scanner.Err()
}

// runShell starts the interactive prompt with history, completion, and
// Ctrl+C cancellation of in-flight commands.
func runShell(c *client.Client, maxRows int) error {
	fmt.Println("Metabridge Interactive Shell")
	fmt.Println("============================")
	fmt.Printf("Protocol %s, current database %s\n", c.Version(), c.CurrentDatabase())
	fmt.Println("Type 'exit' or 'quit' to leave, 'help' for commands")
	fmt.Println("Press Ctrl+C to cancel a running command")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var history []string

	completer := func(d prompt.Document) []prompt.Suggest {
		suggestions := []prompt.Suggest{
			{Text: "SHOW", Description: "Show databases, tables, or partitions"},
			{Text: "CREATE", Description: "Create a database or table"},
			{Text: "DROP", Description: "Drop a database or table"},
			{Text: "DESCRIBE", Description: "Describe table structure"},
			{Text: "SELECT", Description: "Query data"},
			{Text: "set", Description: "Set a session variable"},
			{Text: "dfs", Description: "Run a filesystem command"},
			{Text: "add", Description: "Register a session resource"},
			{Text: "delete", Description: "Unregister a session resource"},
			{Text: "use", Description: "Switch the current database"},
			{Text: "help", Description: "Show available commands"},
			{Text: "history", Description: "Show command history"},
			{Text: "clear", Description: "Clear screen"},
			{Text: "exit", Description: "Exit the shell"},
			{Text: "quit", Description: "Exit the shell"},
		}
		return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
	}

	p := prompt.New(
		shellExecutor(c, maxRows, &history, sigChan),
		completer,
		prompt.OptionTitle("Metabridge Shell"),
		prompt.OptionLivePrefix(func() (string, bool) {
			return c.CurrentDatabase() + "> ", true
		}),
		prompt.OptionPrefixTextColor(prompt.Blue),
		prompt.OptionInputTextColor(prompt.Yellow),
		prompt.OptionSuggestionTextColor(prompt.Green),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionSelectedSuggestionTextColor(prompt.Black),
		prompt.OptionSelectedSuggestionBGColor(prompt.Turquoise),
		prompt.OptionDescriptionBGColor(prompt.DarkGray),
		prompt.OptionDescriptionTextColor(prompt.White),
		prompt.OptionSelectedDescriptionTextColor(prompt.Black),
		prompt.OptionSelectedDescriptionBGColor(prompt.Turquoise),
		prompt.OptionMaxSuggestion(16),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && isExitCommand(in)
		}),
	)

	p.Run()
	return nil
}

// shellExecutor handles one line of shell input and maintains history.
func shellExecutor(c *client.Client, maxRows int, history *[]string, sigChan chan os.Signal) func(string) {
	return func(input string) {
		input = strings.TrimSpace(input)
		if input == "" {
			return
		}

		switch strings.ToLower(input) {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return
		case "help":
			fmt.Println("Available commands:")
			fmt.Println("  exit, quit  - Exit the shell")
			fmt.Println("  help        - Show this help")
			fmt.Println("  history     - Show command history")
			fmt.Println("  clear       - Clear screen")
			fmt.Println("  use <db>    - Switch the current database")
			fmt.Println("  <statement> - Execute a metastore command or query")
			return
		case "history":
			for i, cmd := range *history {
				fmt.Printf("  %d: %s\n", i+1, cmd)
			}
			return
		case "clear":
			fmt.Print("\033[H\033[2J")
			return
		}

		if len(*history) == 0 || (*history)[len(*history)-1] != input {
			*history = append(*history, input)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			select {
			case <-sigChan:
				pterm.Warning.Println("cancelling...")
				cancel()
			case <-ctx.Done():
			}
		}()

		if fields := strings.Fields(input); len(fields) == 2 && strings.EqualFold(fields[0], "use") {
			db := strings.TrimSuffix(fields[1], ";")
			if err := c.SetCurrentDatabase(ctx, db); err != nil {
				pterm.Error.Println(describeError(err))
				return
			}
			pterm.Success.Printfln("current database is now %s", db)
			return
		}

		rows, err := c.RunCommand(ctx, strings.TrimSuffix(input, ";"), maxRows)
		if err != nil {
			if ctx.Err() == context.Canceled {
				pterm.Error.Println("command cancelled")
			} else {
				pterm.Error.Println(describeError(err))
			}
			return
		}

		printRows(rows)
		fmt.Println()
	}
}

func isExitCommand(in string) bool {
	switch strings.ToLower(strings.TrimSpace(in)) {
	case "exit", "quit":
		return true
	}
	return false
}

// splitTarget separates "db.table" into its parts; names without a
// qualifier come back with an empty db, meaning the session's current
// database.
func splitTarget(qualified string) (db, name string) {
	if i := strings.IndexByte(qualified, '.'); i >= 0 {
		return qualified[:i], qualified[i+1:]
	}
	return "", qualified
}

// parseSpec parses "ds=20130101,hr=00" into an ordered partition spec.
// Dynamic partition columns are written with an empty value ("hr=").
func parseSpec(s string) (client.PartitionSpec, error) {
	var spec client.PartitionSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid partition spec element %q, expected column=value", part)
		}
		spec = append(spec, client.PartitionBinding{
			Column: strings.TrimSpace(key),
			Value:  unquote(value),
		})
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("empty partition spec %q", s)
	}
	return spec, nil
}

// parseFilter parses a partition filter such as
// "ds = 20130101 AND hr != 07" into pruning predicates. Clauses are
// joined with AND; each clause is column, operator, value.
func parseFilter(s string) ([]client.Predicate, error) {
	clauses := splitClauses(s)
	if len(clauses) == 0 {
		return nil, fmt.Errorf("empty filter %q", s)
	}

	preds := make([]client.Predicate, 0, len(clauses))
	for _, clause := range clauses {
		pred, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

// splitClauses splits a filter on the AND keyword, case-insensitively.
func splitClauses(s string) []string {
	var clauses []string
	rest := strings.TrimSpace(s)
	for rest != "" {
		i := strings.Index(strings.ToLower(rest), " and ")
		if i < 0 {
			clauses = append(clauses, rest)
			break
		}
		clauses = append(clauses, strings.TrimSpace(rest[:i]))
		rest = strings.TrimSpace(rest[i+5:])
	}
	return clauses
}

// Symbol operators ordered longest first so "<=" is not read as "<".
var filterOps = []string{"<=", ">=", "!=", "<>", "=", "<", ">"}

// parseClause parses one "column op value" clause. LIKE is recognized as a
// word operator, comparisons as symbols.
func parseClause(clause string) (client.Predicate, error) {
	if fields := strings.Fields(clause); len(fields) == 3 && strings.EqualFold(fields[1], "like") {
		return client.Predicate{Column: fields[0], Op: "LIKE", Value: unquote(fields[2])}, nil
	}

	for _, op := range filterOps {
		i := strings.Index(clause, op)
		if i <= 0 {
			continue
		}
		column := strings.TrimSpace(clause[:i])
		value := strings.TrimSpace(clause[i+len(op):])
		if column == "" || value == "" {
			break
		}
		return client.Predicate{Column: column, Op: op, Value: unquote(value)}, nil
	}
	return client.Predicate{}, fmt.Errorf("cannot parse filter clause %q, expected column op value", clause)
}

// unquote strips one level of balanced single or double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
