package trader

import "gridbot/logger"

// TrailingEngine arms, advances and triggers trailing stops over ledger
// positions. It holds no position state of its own; all mutation flows
// through Ledger.SetTrailing.
type TrailingEngine struct {
	percent float64 // trailing distance in percent of price
	ledger  *Ledger
}

// NewTrailingEngine creates a trailing stop engine over the given ledger.
func NewTrailingEngine(percent float64, ledger *Ledger) *TrailingEngine {
	return &TrailingEngine{percent: percent, ledger: ledger}
}

// activationPrice is the midpoint between entry and take-profit: trailing
// arms once half the take-profit distance has been covered.
func activationPrice(p *Position) float64 {
	return (p.EntryPrice + p.TakeProfit) / 2
}

// Update arms the trailing stop when price crosses the activation threshold,
// and ratchets an armed stop in the favorable direction. The stop never
// retreats.
func (e *TrailingEngine) Update(p *Position, price float64) {
	if p.Status != StatusFilled {
		return
	}

	if !p.TrailingArmed {
		activation := activationPrice(p)
		armed := (p.Side == SideLong && price >= activation) ||
			(p.Side == SideShort && price <= activation)
		if !armed {
			return
		}
		stop := e.stopFor(p.Side, price)
		if err := e.ledger.SetTrailing(p.ID, stop); err != nil {
			return
		}
		p.TrailingArmed = true
		p.TrailingStop = stop
		logger.Infof("[Trailing] Armed %s %s at price %.4f, stop %.4f", p.Side, p.Symbol, price, stop)
		return
	}

	newStop := e.stopFor(p.Side, price)
	improved := (p.Side == SideLong && newStop > p.TrailingStop) ||
		(p.Side == SideShort && newStop < p.TrailingStop)
	if !improved {
		return
	}
	if err := e.ledger.SetTrailing(p.ID, newStop); err != nil {
		return
	}
	p.TrailingStop = newStop
}

// Triggered reports whether an armed trailing stop has fired at price.
func (e *TrailingEngine) Triggered(p *Position, price float64) bool {
	if !p.TrailingArmed {
		return false
	}
	if p.Side == SideLong {
		return price <= p.TrailingStop
	}
	return price >= p.TrailingStop
}

func (e *TrailingEngine) stopFor(side Side, price float64) float64 {
	if side == SideLong {
		return price * (1 - e.percent/100)
	}
	return price * (1 + e.percent/100)
}
