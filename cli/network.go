package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/netresearch/occi-now/core"
	"github.com/netresearch/occi-now/core/domain"
)

// NetworkCommand groups the network subcommands. They talk to the
// configured backend directly, without a running daemon.
type NetworkCommand struct {
	List   NetworkListCommand   `command:"list" description:"List networks"`
	Show   NetworkShowCommand   `command:"show" description:"Show a network"`
	Create NetworkCreateCommand `command:"create" description:"Create a network"`
	Delete NetworkDeleteCommand `command:"delete" description:"Delete networks"`
}

// NewNetworkCommand returns the network command group logging to logger.
func NewNetworkCommand(logger core.Logger) *NetworkCommand {
	c := &NetworkCommand{}
	c.List.Logger = logger
	c.Show.Logger = logger
	c.Create.Logger = logger
	c.Delete.Logger = logger
	return c
}

type networkOptions struct {
	ConfigFile string   `long:"config" env:"OCCI_NOW_CONFIG" description:"configuration file" default:"/etc/occi-now/config.ini"`
	Backend    string   `long:"backend" env:"OCCI_NOW_BACKEND" description:"backend type: now, sqlite or memory"`
	Endpoint   string   `long:"endpoint" env:"OCCI_NOW_ENDPOINT" description:"NOW API base URL"`
	DataSource string   `long:"data-source" env:"OCCI_NOW_DATA_SOURCE" description:"sqlite database file"`
	User       string   `short:"u" long:"user" env:"OCCI_NOW_USER" description:"act on behalf of this user"`
	Mixins     []string `short:"m" long:"mixin" description:"mixin identifier (repeatable)"`

	Logger core.Logger
	Out    io.Writer
}

// networkView is the YAML rendering of a network.
type networkView struct {
	ID         string         `yaml:"id"`
	Mixins     []string       `yaml:"mixins,omitempty"`
	Attributes map[string]any `yaml:"attributes"`
}

func viewOf(n *domain.Network) networkView {
	return networkView{ID: n.ID(), Mixins: n.Mixins.Slice(), Attributes: n.Attributes.Map()}
}

// open loads the configuration and returns an adapter plus a release func.
func (o *networkOptions) open(ctx context.Context) (*core.NetworkAdapter, context.Context, func(), error) {
	if o.Logger == nil {
		o.Logger = core.NopLogger()
	}
	config, err := BuildFromFile(o.ConfigFile, o.Logger)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		config = NewConfig(o.Logger)
	case err != nil:
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.Backend != "" {
		config.Backend.Type = o.Backend
	}
	if o.Endpoint != "" {
		config.Backend.Endpoint = o.Endpoint
	}
	if o.DataSource != "" {
		config.Backend.DataSource = o.DataSource
	}
	if err := config.Validate(); err != nil {
		return nil, nil, nil, err
	}

	backend, err := OpenBackend(ctx, config.Backend, o.Logger)
	if err != nil {
		return nil, nil, nil, err
	}
	release := func() {
		if err := backend.Close(); err != nil {
			o.Logger.Warningf("Closing backend: %v", err)
		}
	}
	if o.User != "" {
		ctx = domain.WithDelegatedUser(ctx, domain.DelegatedUser{Identity: o.User})
	}
	return core.NewNetworkAdapter(backend.Factory, o.Logger), ctx, release, nil
}

// filter returns nil without --mixin, which matches every network.
func (o *networkOptions) filter() domain.MixinSet {
	if len(o.Mixins) == 0 {
		return nil
	}
	return domain.ParseMixinSet(o.Mixins...)
}

func (o *networkOptions) writeYAML(v any) error {
	w := o.Out
	if w == nil {
		w = os.Stdout
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// NetworkListCommand prints the networks matching the mixin filter.
type NetworkListCommand struct {
	networkOptions
	IDsOnly bool `long:"ids" description:"print identifiers only"`
}

// Execute runs the list command
func (c *NetworkListCommand) Execute(_ []string) error {
	adapter, ctx, release, err := c.open(context.Background())
	if err != nil {
		return err
	}
	defer release()

	if c.IDsOnly {
		ids, err := adapter.ListIDs(ctx, c.filter())
		if err != nil {
			return err
		}
		return c.writeYAML(ids)
	}

	networks, err := adapter.List(ctx, c.filter())
	if err != nil {
		return err
	}
	views := make([]networkView, 0, len(networks))
	for _, n := range networks {
		views = append(views, viewOf(n))
	}
	return c.writeYAML(views)
}

// NetworkShowCommand prints one network.
type NetworkShowCommand struct {
	networkOptions
	Args struct {
		ID string `positional-arg-name:"id"`
	} `positional-args:"yes"`
}

// Execute runs the show command
func (c *NetworkShowCommand) Execute(_ []string) error {
	if c.Args.ID == "" {
		return ErrNetworkIDRequired
	}
	adapter, ctx, release, err := c.open(context.Background())
	if err != nil {
		return err
	}
	defer release()

	n, err := adapter.Get(ctx, c.Args.ID)
	if err != nil {
		return err
	}
	return c.writeYAML(viewOf(n))
}

// NetworkCreateCommand creates a network and prints its identifier.
type NetworkCreateCommand struct {
	networkOptions
	Title      string `long:"title" description:"occi.core.title"`
	Summary    string `long:"summary" description:"occi.core.summary"`
	VLAN       string `long:"vlan" description:"occi.network.vlan"`
	Address    string `long:"address" description:"occi.network.address (CIDR)"`
	Gateway    string `long:"gateway" description:"occi.network.gateway"`
	Allocation string `long:"allocation" description:"occi.network.allocation (static or dynamic)"`
}

func (c *NetworkCreateCommand) network() *domain.Network {
	var attrs domain.NetworkAttributes
	for _, f := range []struct {
		value  string
		target **string
	}{
		{c.Title, &attrs.Title},
		{c.Summary, &attrs.Summary},
		{c.Address, &attrs.Address},
		{c.Gateway, &attrs.Gateway},
		{c.Allocation, &attrs.Allocation},
	} {
		if f.value != "" {
			*f.target = &f.value
		}
	}
	if c.VLAN != "" {
		if n, err := strconv.Atoi(c.VLAN); err == nil {
			attrs.VLAN = n
		} else {
			attrs.VLAN = c.VLAN
		}
	}

	n := domain.NewNetwork(attrs)
	for _, m := range c.Mixins {
		n.Mixins[m] = struct{}{}
	}
	return n
}

// Execute runs the create command
func (c *NetworkCreateCommand) Execute(_ []string) error {
	adapter, ctx, release, err := c.open(context.Background())
	if err != nil {
		return err
	}
	defer release()

	id, err := adapter.Create(ctx, c.network())
	if err != nil {
		return err
	}
	return c.writeYAML(map[string]string{"id": id})
}

// NetworkDeleteCommand deletes one network, or with --all every network
// matching the mixin filter.
type NetworkDeleteCommand struct {
	networkOptions
	All  bool `long:"all" description:"delete every network matching --mixin"`
	Args struct {
		ID string `positional-arg-name:"id"`
	} `positional-args:"yes"`
}

// Execute runs the delete command
func (c *NetworkDeleteCommand) Execute(_ []string) error {
	if c.Args.ID == "" && !c.All {
		return ErrNetworkIDRequired
	}
	adapter, ctx, release, err := c.open(context.Background())
	if err != nil {
		return err
	}
	defer release()

	if c.All {
		return adapter.DeleteAll(ctx, c.filter())
	}
	return adapter.Delete(ctx, c.Args.ID)
}
