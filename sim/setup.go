package sim

import (
	"fmt"

	"ticket-dealer-go/bank"
	"ticket-dealer-go/config"
	"ticket-dealer-go/ledger"
	"ticket-dealer-go/outside"
	"ticket-dealer-go/policy"
	"ticket-dealer-go/trading"
)

// deskDealerID and deskOutsideID name the per-bucket desk agents the
// runner creates on top of the scenario roster.
func deskDealerID(bucket string) ledger.AgentID {
	return ledger.AgentID("dealer:" + bucket)
}

func deskOutsideID(bucket string) ledger.AgentID {
	return ledger.AgentID("outside:" + bucket)
}

func agentKindOf(s string) (ledger.AgentKind, error) {
	switch ledger.AgentKind(s) {
	case ledger.AgentHousehold, ledger.AgentDealer, ledger.AgentOutside,
		ledger.AgentIssuer, ledger.AgentBank, ledger.AgentAuthority:
		return ledger.AgentKind(s), nil
	}
	return "", fmt.Errorf("unknown agent kind %q", s)
}

// setup applies the scenario as a batch before day 1: roster, desk
// agents, money grants, desk capital, and initial claims.
func (r *Runner) setup(sc config.Scenario) error {
	for _, a := range sc.Agents {
		kind, err := agentKindOf(a.Kind)
		if err != nil {
			return err
		}
		if _, err := r.led.CreateAgent(ledger.AgentID(a.ID), kind); err != nil {
			return err
		}
	}
	if r.led.Authority() == "" {
		return fmt.Errorf("scenario declares no authority agent")
	}

	var desks []*trading.Desk
	var ranges []policy.BucketRange
	for _, b := range r.cfg.Buckets {
		if _, err := r.led.CreateAgent(deskDealerID(b.Name), ledger.AgentDealer); err != nil {
			return err
		}
		if _, err := r.led.CreateAgent(deskOutsideID(b.Name), ledger.AgentOutside); err != nil {
			return err
		}
		anchor := outside.NewAnchor(b.Name, b.Mid.Decimal, b.Spread.Decimal, outside.Params{
			GuardFloor:     r.cfg.Outside.GuardFloor.Decimal,
			PhiMid:         r.cfg.Outside.PhiMid.Decimal,
			PhiSpread:      r.cfg.Outside.PhiSpread.Decimal,
			NonNegativeBid: r.cfg.Outside.NonNegativeBid,
		})
		r.anchors[b.Name] = anchor
		desks = append(desks, &trading.Desk{
			Bucket:  b.Name,
			Dealer:  deskDealerID(b.Name),
			Outside: deskOutsideID(b.Name),
			Anchor:  anchor,
		})
		ranges = append(ranges, policy.BucketRange{Name: b.Name, Lo: b.TauLo, Hi: b.TauHi})

		if b.DealerCash.IsPositive() {
			if _, err := r.led.Mint(deskDealerID(b.Name), b.DealerCash.Decimal, ledger.KindCash); err != nil {
				return err
			}
		}
		if b.OutsideCash.IsPositive() {
			if _, err := r.led.Mint(deskOutsideID(b.Name), b.OutsideCash.Decimal, ledger.KindCash); err != nil {
				return err
			}
		}
	}
	r.desks = desks
	r.ranges = ranges

	for _, g := range sc.Grants {
		kind := ledger.InstrumentKind(g.Kind)
		if kind == "" {
			kind = ledger.KindCash
		}
		if _, err := r.led.Mint(ledger.AgentID(g.To), g.Amount.Decimal, kind); err != nil {
			return err
		}
	}

	pol := policy.New(r.led, ledger.KindCash, r.cfg.Policy.BuyHorizon, r.cfg.Policy.CashBuffer.Decimal, ranges)
	for _, c := range sc.Claims {
		switch c.Kind {
		case "ticket":
			if !c.Amount.Equal(r.cfg.TicketFace.Decimal) {
				return fmt.Errorf("ticket %s->%s amount %s differs from face %s",
					c.Issuer, c.Holder, c.Amount, r.cfg.TicketFace)
			}
			bucket, ok := pol.BucketFor(c.Maturity)
			if !ok {
				return fmt.Errorf("ticket %s->%s maturity %d fits no bucket", c.Issuer, c.Holder, c.Maturity)
			}
			if _, err := r.led.IssueTicket(ledger.AgentID(c.Issuer), ledger.AgentID(c.Holder),
				c.Amount.Decimal, c.Maturity, bucket); err != nil {
				return err
			}
		case "payable":
			if _, err := r.led.IssuePayable(ledger.AgentID(c.Issuer), ledger.AgentID(c.Holder),
				c.Amount.Decimal, c.Maturity); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown claim kind %q", c.Kind)
		}
	}
	r.pol = pol

	// One cohortized balance sheet per bank agent, seeded with its
	// granted cash.
	for _, a := range r.led.Agents() {
		if a.Kind == ledger.AgentBank {
			r.banks[a.ID] = bank.NewBalanceSheet(r.led.BalanceOf(a.ID, ledger.KindCash))
		}
	}
	return r.led.AssertInvariants()
}

// customers returns the agents that present orders: everyone except the
// desk pairs, banks, and the authority.
func (r *Runner) customers() []*ledger.Agent {
	var out []*ledger.Agent
	for _, a := range r.led.Agents() {
		switch a.Kind {
		case ledger.AgentHousehold, ledger.AgentIssuer:
			out = append(out, a)
		case ledger.AgentDealer, ledger.AgentOutside, ledger.AgentBank, ledger.AgentAuthority:
		}
	}
	return out
}
