// Package relayctl implements the relay command-line client.
package relayctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/connect-relay/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/connect-relay/internal/platform/grpc"
	"github.com/louisbranch/connect-relay/internal/platform/timeouts"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/metadata"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/relayv1"
	"github.com/louisbranch/connect-relay/internal/services/relay/callergrant"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	grpcmetadata "google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrUsage is returned when no valid command was given.
var ErrUsage = errors.New("missing or unknown command")

// Config holds relayctl configuration.
type Config struct {
	Addr            string        `env:"RELAY_ADDR" envDefault:"localhost:8095"`
	Caller          string        `env:"RELAY_CALLER"`
	GrantIssuer     string        `env:"RELAY_GRANT_ISSUER"`
	GrantAudience   string        `env:"RELAY_GRANT_AUDIENCE"`
	GrantPrivateKey string        `env:"RELAY_GRANT_PRIVATE_KEY"`
	Timeout         time.Duration `env:"RELAY_CTL_TIMEOUT" envDefault:"5s"`
	Locale          string        `env:"RELAY_LOCALE"`
	Command         string
	Args            []string
}

// ParseConfig parses environment and global flags. The first positional
// argument names the command; the rest are its flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "relay gRPC address")
	fs.StringVar(&cfg.Caller, "caller", cfg.Caller, "address to act as")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout (watch is unbounded)")
	fs.StringVar(&cfg.Locale, "lang", cfg.Locale, "preferred language for error messages")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if fs.NArg() == 0 {
		return Config{}, fmt.Errorf("%w\n%s", ErrUsage, usage())
	}
	cfg.Command = fs.Arg(0)
	cfg.Args = fs.Args()[1:]
	return cfg, nil
}

// Run dials the relay and executes the configured command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if _, ok := findCommand(cfg.Command); !ok {
		return fmt.Errorf("%w: %q\n%s", ErrUsage, cfg.Command, usage())
	}
	conn, err := platformgrpc.DialWithHealth(ctx, cfg.Addr, relayv1.RelayServiceName, timeouts.GRPCDial, nil)
	if err != nil {
		return fmt.Errorf("dial relay at %s: %w", cfg.Addr, err)
	}
	defer conn.Close()
	return Execute(ctx, conn, cfg, out)
}

// Execute runs the configured command over cc and prints responses as JSON.
func Execute(ctx context.Context, cc grpc.ClientConnInterface, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	cmd, ok := findCommand(cfg.Command)
	if !ok {
		return fmt.Errorf("%w: %q\n%s", ErrUsage, cfg.Command, usage())
	}
	in, err := cmd.request(cfg.Args)
	if err != nil {
		return err
	}
	ctx, err = outgoingContext(ctx, cfg)
	if err != nil {
		return err
	}

	if cmd.stream {
		return watch(ctx, cc, in, out)
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	resp := new(structpb.Struct)
	if err := cc.Invoke(ctx, cmd.method, in, resp); err != nil {
		return describeError(cmd.name, err)
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func watch(ctx context.Context, cc grpc.ClientConnInterface, in *structpb.Struct, out io.Writer) error {
	stream, err := relayv1.NewRelayServiceClient(cc).WatchRecords(ctx, in)
	if err != nil {
		return describeError("watch", err)
	}
	for {
		record, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return describeError("watch", err)
		}
		data, err := protojson.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return err
		}
	}
}

// outgoingContext attaches the caller identity: a signed grant when a grant
// key is configured, the plain caller header otherwise.
func outgoingContext(ctx context.Context, cfg Config) (context.Context, error) {
	if locale := strings.TrimSpace(cfg.Locale); locale != "" {
		ctx = grpcmetadata.AppendToOutgoingContext(ctx, metadata.AcceptLanguageHeader, locale)
	}
	raw := strings.TrimSpace(cfg.Caller)
	if raw == "" {
		return ctx, nil
	}
	caller, err := identity.ParseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("caller: %w", err)
	}
	if strings.TrimSpace(cfg.GrantPrivateKey) == "" {
		return metadata.OutgoingCaller(ctx, caller), nil
	}
	signer, err := callergrant.NewSigner(cfg.GrantIssuer, cfg.GrantAudience, cfg.GrantPrivateKey, 0)
	if err != nil {
		return nil, err
	}
	grant, err := signer.Sign(caller)
	if err != nil {
		return nil, fmt.Errorf("sign caller grant: %w", err)
	}
	return metadata.OutgoingGrant(ctx, grant), nil
}

// describeError prefers the server's localized message.
func describeError(op string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	message := st.Message()
	reason := ""
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.LocalizedMessage:
			message = d.GetMessage()
		case *errdetails.ErrorInfo:
			reason = d.GetReason()
		}
	}
	if reason != "" {
		return fmt.Errorf("%s: %s (%s)", op, message, reason)
	}
	return fmt.Errorf("%s: %s: %s", op, st.Code(), message)
}
