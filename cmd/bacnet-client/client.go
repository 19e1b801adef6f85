package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/inspect"
	"github.com/bacnet-stack/bacnet-go/pkg/service"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

// watchProcessID identifies the client's COV subscription on the device.
const watchProcessID = 1

// listenInterval bounds each wait for unsolicited messages.
const listenInterval = 250 * time.Millisecond

var errUsage = errors.New("usage")

// Client runs one command against a remote device.
type Client struct {
	remote    *inspect.Remote
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	out       io.Writer
}

// NewClient creates a client sending requests through remote.
func NewClient(remote *inspect.Remote, out io.Writer) *Client {
	return &Client{
		remote:    remote,
		inspector: inspect.NewInspector(remote),
		formatter: inspect.NewFormatter(),
		out:       out,
	}
}

// Execute runs a command. Watch blocks until its duration passes or ctx is
// cancelled.
func (c *Client) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: <command> [args]", errUsage)
	}
	cmd, args := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "list":
		return c.cmdList()
	case "read":
		return c.cmdRead(args)
	case "write":
		return c.cmdWrite(args)
	case "relinquish":
		return c.cmdRelinquish(args)
	case "create":
		return c.cmdCreate(args)
	case "delete":
		return c.cmdDelete(args)
	case "watch":
		return c.cmdWatch(ctx, args)
	case "who-has":
		return c.cmdWhoHas(args)
	case "comm":
		return c.cmdComm(args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (c *Client) cmdList() error {
	ids, err := c.inspector.ListObjects()
	if err != nil {
		return err
	}
	for _, id := range ids {
		vs, err := c.remote.ReadValues(id, bacnet.PropObjectName, bacnet.ArrayAll)
		name := "?"
		if err == nil && len(vs) == 1 {
			name = vs[0].CharacterString
		}
		fmt.Fprintf(c.out, "  %-32s %q\n", id, name)
	}
	fmt.Fprintf(c.out, "%d objects\n", len(ids))
	return nil
}

func (c *Client) cmdRead(args []string) error {
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
		fmt.Fprint(c.out, c.formatter.FormatObject(info))
		return nil
	}

	vs, err := c.inspector.Read(path)
	if err != nil {
		return err
	}
	unit := c.unit(path.Object)
	if path.Property == bacnet.PropPriorityArray && path.ArrayIndex == bacnet.ArrayAll {
		fmt.Fprintf(c.out, "%s:\n%s", path, c.formatter.FormatPriorityArray(vs, unit))
		return nil
	}
	fmt.Fprintf(c.out, "%s = %s\n", path, c.formatter.FormatProperty(path.Property, vs, unit))
	return nil
}

func (c *Client) cmdWrite(args []string) error {
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
	fmt.Fprintf(c.out, "OK: %s <- %s @%d\n", path, args[1], priority)
	return nil
}

func (c *Client) cmdRelinquish(args []string) error {
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
	fmt.Fprintf(c.out, "OK: %s relinquished @%d\n", id, priority)
	return nil
}

func (c *Client) cmdCreate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: create <type> [instance|-] [name]", errUsage)
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

	id, err := c.remote.CreateObject(t, instance, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created %s\n", id)
	return nil
}

func (c *Client) cmdDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete <object>", errUsage)
	}
	id, err := parseObject(args[0])
	if err != nil {
		return err
	}
	if err := c.remote.DeleteObject(id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted %s\n", id)
	return nil
}

// cmdWatch subscribes to an object and prints notifications until the
// duration passes. A zero duration watches until ctx is cancelled.
func (c *Client) cmdWatch(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: watch <object> [seconds]", errUsage)
	}
	id, err := parseObject(args[0])
	if err != nil {
		return err
	}
	var duration time.Duration
	if len(args) == 2 {
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %q", inspect.ErrInvalidNumber, args[1])
		}
		duration = time.Duration(n) * time.Second
	}

	unit := c.unit(id)
	c.remote.OnNotification(func(n *wire.Notification) {
		values, err := wire.DecodeValues(n.Values)
		if err != nil {
			fmt.Fprintf(c.out, "[COV] %s: %v\n", n.Object, err)
			return
		}
		parts := make([]string, len(values))
		for i, pv := range values {
			parts[i] = fmt.Sprintf("%s=%s", pv.Property, c.formatter.FormatValue(pv.Value, unit))
		}
		fmt.Fprintf(c.out, "[COV] %s %s\n", n.Object, strings.Join(parts, " "))
	})
	defer c.remote.OnNotification(nil)

	// An indefinite watch holds an indefinite subscription, cancelled on exit.
	if err := c.remote.Subscribe(watchProcessID, id, false, duration); err != nil {
		return err
	}
	defer func() {
		if err := c.remote.Cancel(watchProcessID, id); err != nil {
			fmt.Fprintf(c.out, "cancel: %s\n", inspect.FormatError(err))
		}
	}()

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		default:
		}
		if _, err := c.remote.Listen(listenInterval); err != nil {
			return err
		}
	}
}

func (c *Client) cmdWhoHas(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: who-has <name>", errUsage)
	}
	name := strings.Join(args, " ")

	found := 0
	c.remote.OnIHave(func(ih *wire.IHave) {
		found++
		fmt.Fprintf(c.out, "I-Have: %s %s %q\n", ih.Device, ih.Object, ih.ObjectName)
	})
	defer c.remote.OnIHave(nil)

	if err := c.remote.WhoHas(name); err != nil {
		return err
	}
	if _, err := c.remote.Listen(listenInterval); err != nil {
		return err
	}
	if found == 0 {
		fmt.Fprintf(c.out, "No object named %q\n", name)
	}
	return nil
}

func (c *Client) cmdComm(args []string) error {
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
	var minutes uint16
	if len(args) == 2 {
		n, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %q", inspect.ErrInvalidNumber, args[1])
		}
		minutes = uint16(n)
	}
	if err := c.remote.CommunicationControl(state, minutes); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Communication %s\n", state)
	return nil
}

// unit returns the engineering units name of an object, or "" when it has
// none.
func (c *Client) unit(id bacnet.ObjectID) string {
	vs, err := c.remote.ReadValues(id, bacnet.PropUnits, bacnet.ArrayAll)
	if err != nil || len(vs) != 1 {
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
