// Package interactive provides the interactive command-line interface
// for bacnet-device.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/inspect"
	"github.com/bacnet-stack/bacnet-go/pkg/service"
)

// subscriberName identifies the console's local COV subscriptions.
const subscriberName = "console"

// defaultHistoryLimit bounds the history command when no limit is given.
const defaultHistoryLimit = 10

var errUsage = errors.New("usage")

// Console handles interactive mode for bacnet-device.
type Console struct {
	svc       *service.DeviceService
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	rl        *readline.Instance

	outMu sync.Mutex
	out   io.Writer

	// nextProcessID numbers the console's COV subscriptions.
	nextProcessID uint32
}

// New creates a console reading commands through readline.
func New(svc *service.DeviceService) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bacnet> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(svc, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(svc *service.DeviceService, out io.Writer) *Console {
	c := &Console{
		svc:       svc,
		inspector: inspect.NewInspector(svc),
		formatter: inspect.NewFormatter(),
		out:       out,
	}
	svc.OnEvent(c.handleEvent)
	return c
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("list"),
		readline.PcItem("read"),
		readline.PcItem("write"),
		readline.PcItem("relinquish"),
		readline.PcItem("create",
			readline.PcItem("analog-value"),
			readline.PcItem("integer-value"),
			readline.PcItem("positive-integer-value"),
		),
		readline.PcItem("delete"),
		readline.PcItem("cov",
			readline.PcItem("list"),
			readline.PcItem("cancel"),
		),
		readline.PcItem("comm",
			readline.PcItem("enable"),
			readline.PcItem("disable"),
			readline.PcItem("disable-initiation"),
		),
		readline.PcItem("history"),
		readline.PcItem("exit"),
	)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	if c.rl != nil {
		return c.rl.Stdout()
	}
	return c.out
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	if c.rl != nil {
		return c.rl.Stderr()
	}
	return c.out
}

// Run starts the interactive command loop. It calls cancel when the user
// exits.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			c.println("Exiting...")
			cancel()
			return
		}

		if c.Execute(line) {
			c.println("Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the console should
// exit.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls", "l":
		err = c.cmdList()
	case "read", "r":
		err = c.cmdRead(args)
	case "write", "w":
		err = c.cmdWrite(args)
	case "relinquish":
		err = c.cmdRelinquish(args)
	case "create":
		err = c.cmdCreate(args)
	case "delete":
		err = c.cmdDelete(args)
	case "cov":
		err = c.cmdCOV(args)
	case "comm":
		err = c.cmdComm(args)
	case "history", "h":
		err = c.cmdHistory(args)
	case "exit", "quit", "q":
		return true
	default:
		c.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			c.printf("Usage: %s\n", strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		} else {
			c.println(inspect.FormatError(err))
		}
	}
	return false
}

func (c *Console) printHelp() {
	c.println(`
Commands:
  Inspection:
    list                          - List objects
    read <path>                   - Read a property, or all properties of an object
    history <object> [limit]      - Show recorded present values

  Commanding:
    write <path> <value> [prio]   - Write a property (priority 1-16, default 16)
    relinquish <object> <prio>    - Release a present-value command

  Objects:
    create <type> [instance] [name] - Create an object ("-" picks the instance)
    delete <object>               - Delete an object

  Change of value:
    cov <object> [seconds]        - Watch an object
    cov cancel <object>           - Stop watching
    cov list                      - List subscriptions

  Device:
    comm <state> [minutes]        - Set communication state (enable, disable, disable-initiation)

  Other:
    help                          - Show this help
    exit                          - Exit

Paths: analog-value:1/present-value, av:1/pa[8], device/object-list`)
}

func (c *Console) cmdList() error {
	ids, err := c.inspector.ListObjects()
	if err != nil {
		return err
	}
	d := c.svc.Device()
	for _, id := range ids {
		name, _ := d.ObjectName(id)
		c.printf("  %-32s %q\n", id, name)
	}
	c.printf("%d objects\n", len(ids))
	return nil
}

func (c *Console) cmdRead(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: read <path>", errUsage)
	}
	path, err := inspect.ParsePath(args[0])
	if err != nil {
		return err
	}

	if path.IsPartial {
		info, err := c.inspector.ReadAll(path.Object)
		if err != nil {
			return err
		}
		c.print(c.formatter.FormatObject(info))
		return nil
	}

	vs, err := c.inspector.Read(path)
	if err != nil {
		return err
	}
	unit := c.unit(path.Object)
	if path.Property == bacnet.PropPriorityArray && path.ArrayIndex == bacnet.ArrayAll {
		c.printf("%s:\n%s", path, c.formatter.FormatPriorityArray(vs, unit))
		return nil
	}
	c.printf("%s = %s\n", path, c.formatter.FormatProperty(path.Property, vs, unit))
	return nil
}

func (c *Console) cmdWrite(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: write <path> <value> [priority]", errUsage)
	}
	path, err := inspect.ParsePath(args[0])
	if err != nil {
		return err
	}
	priority := uint8(service.DefaultPriority)
	if len(args) == 3 {
		if priority, err = parsePriority(args[2]); err != nil {
			return err
		}
	}
	if err := c.inspector.Write(path, args[1], priority); err != nil {
		return err
	}
	c.printf("OK: %s <- %s @%d\n", path, args[1], priority)
	return nil
}

func (c *Console) cmdRelinquish(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: relinquish <object> <priority>", errUsage)
	}
	id, err := parseObject(args[0])
	if err != nil {
		return err
	}
	priority, err := parsePriority(args[1])
	if err != nil {
		return err
	}
	if err := c.inspector.Relinquish(id, priority); err != nil {
		return err
	}
	c.printf("OK: %s relinquished @%d\n", id, priority)
	return nil
}

func (c *Console) cmdCreate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: create <type> [instance] [name]", errUsage)
	}
	t, ok := inspect.ResolveObjectType(args[0])
	if !ok {
		return fmt.Errorf("%w: %q", inspect.ErrUnknownType, args[0])
	}
	instance := bacnet.MaxInstance
	if len(args) > 1 && args[1] != "-" {
		n, err := strconv.ParseUint(args[1], 10, 22)
		if err != nil {
			return fmt.Errorf("%w: %q", inspect.ErrInvalidNumber, args[1])
		}
		instance = uint32(n)
	}
	var name string
	if len(args) > 2 {
		name = strings.Join(args[2:], " ")
	}

	id, err := c.svc.CreateObject(t, instance, name)
	if err != nil {
		return err
	}
	name, _ = c.svc.Device().ObjectName(id)
	c.printf("Created %s %q\n", id, name)
	return nil
}

func (c *Console) cmdDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete <object>", errUsage)
	}
	id, err := parseObject(args[0])
	if err != nil {
		return err
	}
	if err := c.svc.DeleteObject(id); err != nil {
		return err
	}
	c.printf("Deleted %s\n", id)
	return nil
}

func (c *Console) cmdCOV(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: cov <object> [seconds] | cov cancel <object> | cov list", errUsage)
	}

	switch args[0] {
	case "list":
		subs := c.svc.Subscriptions()
		for _, s := range subs {
			remaining := "indefinite"
			if !s.Expires.IsZero() {
				remaining = time.Until(s.Expires).Round(time.Second).String()
			}
			c.printf("  %-24s pid=%-4d %-28s %s\n", s.Subscriber, s.ProcessID, s.Object, remaining)
		}
		c.printf("%d subscriptions\n", len(subs))
		return nil

	case "cancel":
		if len(args) != 2 {
			return fmt.Errorf("%w: cov cancel <object>", errUsage)
		}
		id, err := parseObject(args[1])
		if err != nil {
			return err
		}
		cancelled := 0
		for _, s := range c.svc.Subscriptions() {
			if s.Object == id && s.Subscriber == service.LocalPrefix+subscriberName {
				if c.svc.CancelLocal(subscriberName, s.ProcessID, id) {
					cancelled++
				}
			}
		}
		c.printf("Cancelled %d subscriptions on %s\n", cancelled, id)
		return nil
	}

	id, err := parseObject(args[0])
	if err != nil {
		return err
	}
	var lifetime time.Duration
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %q", inspect.ErrInvalidNumber, args[1])
		}
		lifetime = time.Duration(n) * time.Second
	}

	c.nextProcessID++
	if err := c.svc.SubscribeLocal(subscriberName, c.nextProcessID, id, lifetime); err != nil {
		return err
	}
	c.printf("Watching %s (pid %d)\n", id, c.nextProcessID)
	return nil
}

func (c *Console) cmdComm(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: comm <enable|disable|disable-initiation> [minutes]", errUsage)
	}
	var state bacnet.CommunicationState
	switch strings.ToLower(args[0]) {
	case "enable":
		state = bacnet.CommunicationEnable
	case "disable":
		state = bacnet.CommunicationDisable
	case "disable-initiation":
		state = bacnet.CommunicationDisableInitiation
	default:
		return fmt.Errorf("%w: comm <enable|disable|disable-initiation> [minutes]", errUsage)
	}
	var duration time.Duration
	if len(args) == 2 {
		n, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %q", inspect.ErrInvalidNumber, args[1])
		}
		duration = time.Duration(n) * time.Minute
	}
	if err := c.svc.SetCommunicationState(state, duration); err != nil {
		return err
	}
	c.printf("Communication %s\n", state)
	return nil
}

func (c *Console) cmdHistory(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: history <object> [limit]", errUsage)
	}
	id, err := parseObject(args[0])
	if err != nil {
		return err
	}
	limit := defaultHistoryLimit
	if len(args) == 2 {
		if limit, err = strconv.Atoi(args[1]); err != nil || limit <= 0 {
			return fmt.Errorf("%w: %q", inspect.ErrInvalidNumber, args[1])
		}
	}

	entries, err := c.svc.History(context.Background(), id, time.Time{}, limit)
	if err != nil {
		return err
	}
	if entries == nil {
		c.println("History is not enabled")
		return nil
	}
	for _, e := range entries {
		flag := ""
		if e.OutOfService {
			flag = " (out-of-service)"
		}
		c.printf("  %s  %s%s\n", e.RecordedAt.Format(time.RFC3339), e.Value, flag)
	}
	c.printf("%d entries\n", len(entries))
	return nil
}

// handleEvent prints the console's own notifications and writes made by
// remote clients.
func (c *Console) handleEvent(ev service.Event) {
	switch ev.Type {
	case service.EventNotification:
		if ev.Subscriber != service.LocalPrefix+subscriberName {
			return
		}
		unit := c.unit(ev.Object)
		var parts []string
		for _, pv := range ev.Values {
			parts = append(parts, fmt.Sprintf("%s=%s", pv.Property,
				c.formatter.FormatProperty(pv.Property, []bacapp.Value{pv.Value}, unit)))
		}
		c.printf("[COV] %s %s\n", ev.Object, strings.Join(parts, " "))
	case service.EventPropertyWritten:
		if ev.ConnID == "" || ev.ConnID == "local" {
			return
		}
		c.printf("[WRITE] %s %s by %s\n", ev.Object, ev.Property, ev.ConnID)
	case service.EventCommunicationChanged:
		c.printf("[COMM] %s\n", ev.State)
	}
}

// unit returns the engineering units name of an object, or "" when it has
// none.
func (c *Console) unit(id bacnet.ObjectID) string {
	vs, err := c.svc.ReadValues(id, bacnet.PropUnits, bacnet.ArrayAll)
	if err != nil || len(vs) != 1 || vs[0].Tag != bacapp.TagEnumerated {
		return ""
	}
	return bacnet.EngineeringUnits(vs[0].Enumerated).String()
}

func parseObject(s string) (bacnet.ObjectID, error) {
	path, err := inspect.ParsePath(s)
	if err != nil {
		return bacnet.ObjectID{}, err
	}
	if !path.IsPartial {
		return bacnet.ObjectID{}, fmt.Errorf("%w: expected an object, got %q", inspect.ErrInvalidPath, s)
	}
	return path.Object, nil
}

func parsePriority(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n < 1 || n > bacnet.MaxPriority {
		return 0, fmt.Errorf("%w: priority %q", inspect.ErrInvalidNumber, s)
	}
	return uint8(n), nil
}

func (c *Console) print(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprint(c.out, s)
}

func (c *Console) println(s string) {
	c.print(s + "\n")
}

func (c *Console) printf(format string, args ...any) {
	c.print(fmt.Sprintf(format, args...))
}
