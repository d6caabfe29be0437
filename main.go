package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/adapters/dbschema"
	_ "github.com/sketchwork-app/sketchwork-engine/pkg/adapters/dbschema/mssql"
	_ "github.com/sketchwork-app/sketchwork-engine/pkg/adapters/dbschema/postgres"
	"github.com/sketchwork-app/sketchwork-engine/pkg/bridge"
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/config"
	"github.com/sketchwork-app/sketchwork-engine/pkg/crypto"
	"github.com/sketchwork-app/sketchwork-engine/pkg/geometry"
	"github.com/sketchwork-app/sketchwork-engine/pkg/layout"
	"github.com/sketchwork-app/sketchwork-engine/pkg/llm"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
	"github.com/sketchwork-app/sketchwork-engine/pkg/services"
	"github.com/sketchwork-app/sketchwork-engine/pkg/workspace"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage()
		return
	case "version", "--version":
		fmt.Println(Version)
		return
	}

	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sketchwork-engine: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sketchwork-engine: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a := &app{cfg: cfg, logger: logger}
	ctx := context.Background()

	var runErr error
	switch os.Args[1] {
	case "inspect":
		runErr = a.runInspect(ctx, os.Args[2:])
	case "arrange":
		runErr = a.runArrange(ctx, os.Args[2:])
	case "new":
		runErr = a.runNew(ctx, os.Args[2:])
	case "import-schema":
		runErr = a.runImportSchema(ctx, os.Args[2:])
	case "generate":
		runErr = a.runGenerate(ctx, os.Args[2:])
	case "edit":
		runErr = a.runEdit(ctx, os.Args[2:])
	case "project":
		runErr = a.runProject(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "sketchwork-engine: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "sketchwork-engine: %v\n", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `sketchwork-engine - diagram engine command line

Usage:
  sketchwork-engine <command> [flags] [arguments]

Commands:
  inspect <file>                  Validate a diagram file and print a summary
  arrange <file>                  Recompute node positions and save the geometry
  new <type> <file>               Create an empty diagram (er, usecase, class)
  import-schema                   Build an ER diagram from a live database
  generate -prompt ... -o <file>  Generate a diagram with the assistant
  edit <file> -prompt ...         Apply an assistant instruction to a diagram
  project <subcommand>            Manage workspace projects
  version                         Print the version

Run "sketchwork-engine <command> -h" for command flags.
`)
}

// buildLogger follows Env: "local" gets the development console encoder,
// anything else production JSON. Logs go to stderr either way, so command
// output on stdout stays clean.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := cfg.Log.ZapLevel()
	if err != nil {
		return nil, err
	}

	logConfig := zap.NewProductionConfig()
	if cfg.Env == "local" {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

// app carries the loaded configuration and logger through the command
// handlers.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// documents wires a file bridge, geometry store, and controller cache
// behind a document service. The caller closes the returned bridge.
func (a *app) documents() (services.DocumentService, bridge.FileBridge, error) {
	files, err := bridge.NewLocalBridge(a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("file bridge: %w", err)
	}
	geom := geometry.NewStore(files, a.logger)
	cache := services.NewControllerCache(a.logger)
	return services.NewDocumentService(files, geom, cache, a.logger), files, nil
}

// workspaceManager opens the project registry. The credentials cipher is
// only constructed when a key is configured; commands that never touch
// stored secrets work without one.
func (a *app) workspaceManager() (*workspace.Manager, error) {
	var cipher *crypto.SecretCipher
	if a.cfg.ProjectCredentialsKey != "" {
		c, err := crypto.NewSecretCipher(a.cfg.ProjectCredentialsKey)
		if err != nil {
			return nil, fmt.Errorf("credentials key: %w", err)
		}
		cipher = c
	}
	return workspace.NewManager(a.cfg.Workspace.Dir, cipher, nil, a.logger)
}

// llmClient builds the assistant client from configuration.
func (a *app) llmClient() (llm.LLMClient, error) {
	if !a.cfg.LLM.IsAvailable() {
		return nil, fmt.Errorf("no assistant endpoint configured: set LLM_MODEL and LLM_ENDPOINT, or LLM_PROVIDER=anthropic with LLM_API_KEY")
	}
	return llm.NewClient(&llm.Config{
		Provider: a.cfg.LLM.Provider,
		Endpoint: a.cfg.LLM.Endpoint,
		Model:    a.cfg.LLM.Model,
		APIKey:   a.cfg.LLM.APIKey,
	}, a.logger)
}

func (a *app) runInspect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sketchwork-engine inspect <file>")
	}

	docs, files, err := a.documents()
	if err != nil {
		return err
	}
	defer files.Close()

	ctrl, err := docs.Open(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	fmt.Printf("%s\n", fs.Arg(0))
	fmt.Printf("  Type:  %s\n", ctrl.Type())
	fmt.Printf("  Name:  %s\n", ctrl.Name())
	fmt.Printf("  Nodes: %d\n", len(ctrl.Nodes()))
	fmt.Printf("  Edges: %d\n", len(ctrl.Edges()))
	return nil
}

func (a *app) runArrange(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("arrange", flag.ExitOnError)
	algorithm := fs.String("algorithm", layout.AlgorithmAuto, "grid, circle, force, tree or auto")
	spacing := fs.Float64("spacing", 0, "distance between nodes (0 uses the default)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sketchwork-engine arrange <file> [-algorithm name]")
	}
	path := fs.Arg(0)

	docs, files, err := a.documents()
	if err != nil {
		return err
	}
	defer files.Close()

	ctrl, err := docs.Open(ctx, path)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	opts := layout.DefaultOptions()
	if *spacing > 0 {
		opts.Spacing = *spacing
	}

	engine := layout.NewEngine(a.logger)
	arranged, err := engine.Apply(*algorithm, ctrl.Nodes(), ctrl.Edges(), opts)
	if err != nil {
		return err
	}

	changes := make([]canvas.NodeChange, 0, len(arranged))
	for _, node := range arranged {
		pos := node.Position
		changes = append(changes, canvas.NodeChange{
			Type:     canvas.ChangePosition,
			ID:       node.ID,
			Position: &pos,
		})
	}
	if err := ctrl.ApplyNodeChanges(changes); err != nil {
		return err
	}
	if err := ctrl.Save(ctx, ""); err != nil {
		return err
	}

	fmt.Printf("Arranged %d nodes (%s layout): %s\n", len(arranged), *algorithm, path)
	return nil
}

func (a *app) runNew(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	name := fs.String("name", "", "diagram name (defaults to the file name)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: sketchwork-engine new <er|usecase|class> <file>")
	}

	diagramType, err := resolveDiagramType(fs.Arg(0))
	if err != nil {
		return err
	}

	docs, files, err := a.documents()
	if err != nil {
		return err
	}
	defer files.Close()

	ctrl, err := docs.Create(ctx, diagramType, *name, fs.Arg(1))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	fmt.Printf("Created %s: %s\n", ctrl.Type(), fs.Arg(1))
	return nil
}

func (a *app) runImportSchema(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-schema", flag.ExitOnError)
	driver := fs.String("driver", "", "schema driver: "+driverNames())
	dsnConfig := fs.String("dsn-config", "", "path to a JSON file with connection fields")
	projectRef := fs.String("project", "", "project id or name holding the connection profile")
	connection := fs.String("connection", "", "name of the stored connection profile")
	name := fs.String("name", "", "diagram name (defaults to the database name)")
	out := fs.String("o", "", "output diagram file (defaults to <name>.json)")
	fs.Parse(args)

	var driverName string
	var connConfig map[string]any
	switch {
	case *dsnConfig != "":
		if *driver == "" {
			return fmt.Errorf("-driver is required with -dsn-config (%s)", driverNames())
		}
		raw, err := os.ReadFile(*dsnConfig)
		if err != nil {
			return fmt.Errorf("read connection config: %w", err)
		}
		if err := json.Unmarshal(raw, &connConfig); err != nil {
			return fmt.Errorf("parse connection config: %w", err)
		}
		driverName = *driver
	case *projectRef != "" && *connection != "":
		mgr, err := a.workspaceManager()
		if err != nil {
			return err
		}
		entry, err := mgr.Find(*projectRef)
		if err != nil {
			return err
		}
		project, err := mgr.Open(entry.ID)
		if err != nil {
			return err
		}
		profile, err := mgr.Connection(project, *connection)
		if err != nil {
			return err
		}
		driverName = profile.Driver
		connConfig = profile.Config
	default:
		return fmt.Errorf("pass -dsn-config with -driver, or -project with -connection")
	}

	if !dbschema.IsRegistered(driverName) {
		return fmt.Errorf("driver %q is not in this build (available: %s)", driverName, driverNames())
	}

	intr, err := dbschema.Open(ctx, driverName, connConfig, a.logger)
	if err != nil {
		return err
	}
	defer intr.Close()

	diagramName := *name
	if diagramName == "" {
		if db, ok := connConfig["database"].(string); ok {
			diagramName = db
		}
	}
	if diagramName == "" {
		diagramName = "Imported Schema"
	}

	importer := services.NewSchemaImporter(intr, a.logger)
	diagram, err := importer.Import(ctx, diagramName)
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = strings.ReplaceAll(diagramName, " ", "_") + ".json"
	}
	if err := writeDiagramFile(ctx, a.logger, outPath, diagram); err != nil {
		return err
	}

	fmt.Printf("Imported %d tables, %d relationships: %s\n",
		len(diagram.Tables), len(diagram.Relationships), outPath)
	return nil
}

func (a *app) runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	typeArg := fs.String("type", "", "diagram type: er, usecase or class (inferred from the prompt when empty)")
	prompt := fs.String("prompt", "", "what to generate")
	out := fs.String("o", "", "output diagram file")
	fs.Parse(args)
	if *prompt == "" || *out == "" {
		return fmt.Errorf("usage: sketchwork-engine generate -prompt <text> -o <file> [-type er|usecase|class]")
	}

	client, err := a.llmClient()
	if err != nil {
		return err
	}
	assistant := services.NewDiagramAssistant(client, nil, a.logger)

	diagramType := ""
	if *typeArg != "" {
		diagramType, err = resolveDiagramType(*typeArg)
		if err != nil {
			return err
		}
	} else {
		diagramType = assistant.DetermineType(*prompt)
	}

	doc, err := assistant.Generate(ctx, diagramType, *prompt)
	if err != nil {
		return err
	}
	if err := writeDiagramFile(ctx, a.logger, *out, doc); err != nil {
		return err
	}

	fmt.Printf("Generated %s: %s\n", diagramType, *out)
	return nil
}

func (a *app) runEdit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	prompt := fs.String("prompt", "", "the change to make")
	fs.Parse(args)
	if fs.NArg() != 1 || *prompt == "" {
		return fmt.Errorf("usage: sketchwork-engine edit <file> -prompt <text>")
	}
	path := fs.Arg(0)

	client, err := a.llmClient()
	if err != nil {
		return err
	}
	assistant := services.NewDiagramAssistant(client, nil, a.logger)

	files, err := bridge.NewLocalBridge(a.logger)
	if err != nil {
		return fmt.Errorf("file bridge: %w", err)
	}
	defer files.Close()

	text, err := files.ReadFileAsText(ctx, path)
	if err != nil {
		return err
	}
	diagramType, err := models.DetectDiagramType([]byte(text))
	if err != nil {
		return err
	}

	doc, err := assistant.Edit(ctx, diagramType, text, *prompt)
	if err != nil {
		return err
	}

	marshaled, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal diagram: %w", err)
	}
	if err := files.SaveFile(ctx, path, string(marshaled)); err != nil {
		return err
	}

	fmt.Printf("Edited %s: %s\n", diagramType, path)
	return nil
}

func (a *app) runProject(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: sketchwork-engine project <create|list|rename|delete|set-connection> ...")
	}

	mgr, err := a.workspaceManager()
	if err != nil {
		return err
	}

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("project create", flag.ExitOnError)
		fs.Parse(args[1:])
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: sketchwork-engine project create <name>")
		}
		project, err := mgr.Create(fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Printf("Created project %q (%s)\n  %s\n", project.Name, shortID(project.ID.String()), project.Root)
		return nil

	case "list":
		entries := mgr.List()
		if len(entries) == 0 {
			fmt.Println("No projects yet. Create one with: sketchwork-engine project create <name>")
			return nil
		}
		for _, entry := range entries {
			fmt.Printf("%s  %-24s  %s\n", shortID(entry.ID.String()), entry.Name, entry.Path)
		}
		return nil

	case "rename":
		fs := flag.NewFlagSet("project rename", flag.ExitOnError)
		fs.Parse(args[1:])
		if fs.NArg() != 2 {
			return fmt.Errorf("usage: sketchwork-engine project rename <id|name> <new name>")
		}
		entry, err := mgr.Find(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := mgr.Rename(entry.ID, fs.Arg(1)); err != nil {
			return err
		}
		fmt.Printf("Renamed project %q to %q\n", entry.Name, fs.Arg(1))
		return nil

	case "delete":
		fs := flag.NewFlagSet("project delete", flag.ExitOnError)
		fs.Parse(args[1:])
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: sketchwork-engine project delete <id|name>")
		}
		entry, err := mgr.Find(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := mgr.Delete(entry.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted project %q\n", entry.Name)
		return nil

	case "set-connection":
		fs := flag.NewFlagSet("project set-connection", flag.ExitOnError)
		connName := fs.String("name", "default", "connection profile name")
		driver := fs.String("driver", "", "schema driver: "+driverNames())
		configPath := fs.String("config", "", "path to a JSON file with connection fields")
		fs.Parse(args[1:])
		if fs.NArg() != 1 || *driver == "" || *configPath == "" {
			return fmt.Errorf("usage: sketchwork-engine project set-connection <id|name> -driver <driver> -config <file>")
		}

		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return fmt.Errorf("read connection config: %w", err)
		}
		var connConfig map[string]any
		if err := json.Unmarshal(raw, &connConfig); err != nil {
			return fmt.Errorf("parse connection config: %w", err)
		}

		entry, err := mgr.Find(fs.Arg(0))
		if err != nil {
			return err
		}
		project, err := mgr.Open(entry.ID)
		if err != nil {
			return err
		}
		profile := workspace.ConnectionProfile{Driver: *driver, Config: connConfig}
		if err := mgr.SetConnection(project, *connName, profile); err != nil {
			return err
		}
		fmt.Printf("Stored connection %q for project %q\n", *connName, entry.Name)
		return nil

	default:
		return fmt.Errorf("unknown project subcommand %q", args[0])
	}
}

// resolveDiagramType maps command-line spellings onto diagram type tags.
func resolveDiagramType(arg string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "er", "erd", "database", "db":
		return models.DiagramTypeER, nil
	case "usecase", "use-case":
		return models.DiagramTypeUseCase, nil
	case "class", "uml":
		return models.DiagramTypeClass, nil
	}
	if models.IsValidDiagramType(arg) {
		return arg, nil
	}
	return "", fmt.Errorf("unknown diagram type %q (er, usecase or class)", arg)
}

// writeDiagramFile marshals a diagram document and writes it through the
// file bridge so the write is atomic.
func writeDiagramFile(ctx context.Context, logger *zap.Logger, path string, doc any) error {
	files, err := bridge.NewLocalBridge(logger)
	if err != nil {
		return fmt.Errorf("file bridge: %w", err)
	}
	defer files.Close()

	text, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal diagram: %w", err)
	}
	return files.SaveFile(ctx, path, string(text))
}

// driverNames lists the schema drivers compiled into this binary.
func driverNames() string {
	drivers := dbschema.Drivers()
	if len(drivers) == 0 {
		return "none; rebuild with -tags postgres, mssql or all_adapters"
	}
	names := make([]string, 0, len(drivers))
	for _, d := range drivers {
		names = append(names, d.Name)
	}
	return strings.Join(names, ", ")
}

// shortID abbreviates a uuid for display, matching the suffix used in
// project directory names.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
