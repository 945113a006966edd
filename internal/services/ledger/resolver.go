package ledger

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

// Resolver exposes ledger tokens to the relay.
type Resolver struct {
	Ledger *Ledger
}

// Token implements domain.TokenResolver. Unknown tokens fail with an
// UNKNOWN_TOKEN error.
func (r Resolver) Token(ctx context.Context, addr identity.Address) (domain.Token, error) {
	if r.Ledger == nil {
		return nil, unknownToken(addr)
	}
	token, err := r.Ledger.Token(ctx, addr)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Genesis is one initial token allocation.
type Genesis struct {
	Token  identity.Address
	Holder identity.Address
	Supply *big.Int
}

// ParseGenesis parses a comma-separated list of token:holder:supply entries.
func ParseGenesis(value string) ([]Genesis, error) {
	var out []Genesis
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("genesis entry %q: want token:holder:supply", entry)
		}
		token, err := identity.ParseAddress(parts[0])
		if err != nil {
			return nil, fmt.Errorf("genesis token: %w", err)
		}
		holder, err := identity.ParseAddress(parts[1])
		if err != nil {
			return nil, fmt.Errorf("genesis holder: %w", err)
		}
		supply, err := identity.ParseAmount(parts[2])
		if err != nil {
			return nil, fmt.Errorf("genesis supply: %w", err)
		}
		out = append(out, Genesis{Token: token, Holder: holder, Supply: supply})
	}
	return out, nil
}

// ApplyGenesis creates every token not yet in the ledger.
func (l *Ledger) ApplyGenesis(ctx context.Context, entries []Genesis) error {
	for _, entry := range entries {
		created, err := l.CreateToken(ctx, entry.Token, entry.Holder, entry.Supply)
		if err != nil {
			return fmt.Errorf("create token %s: %w", entry.Token, err)
		}
		if created {
			log.Printf("ledger genesis: %s minted %s to %s", entry.Token, entry.Supply, entry.Holder)
		}
	}
	return nil
}

// LogListener logs ledger notifications.
type LogListener struct{}

func (LogListener) OnTransfer(event TransferEvent) {
	log.Printf("ledger transfer: token=%s from=%s to=%s amount=%s", event.Token, event.From, event.To, event.Amount)
}

func (LogListener) OnApproval(event ApprovalEvent) {
	log.Printf("ledger approval: token=%s holder=%s spender=%s amount=%s", event.Token, event.Holder, event.Spender, event.Amount)
}
