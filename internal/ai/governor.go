package ai

import (
	"fmt"
	"sort"

	"github.com/talgya/tradewinds/internal/social"
)

// DevelopmentKind is a category of city development action.
type DevelopmentKind uint8

const (
	DevelopBuildFacility DevelopmentKind = iota
	DevelopImproveDefense
	DevelopRaiseTaxes
	DevelopLowerTaxes
	DevelopPromoteTrade
)

func (k DevelopmentKind) String() string {
	switch k {
	case DevelopBuildFacility:
		return "build_facility"
	case DevelopImproveDefense:
		return "improve_defense"
	case DevelopRaiseTaxes:
		return "raise_taxes"
	case DevelopLowerTaxes:
		return "lower_taxes"
	case DevelopPromoteTrade:
		return "promote_trade"
	}
	return "unknown"
}

const (
	defenseCost        = 500
	defenseStep        = 5
	promotionCost      = 300
	taxStep            = 2
	maxTaxRate         = 30
	taxStabilityShift  = 3.0
	lowHealthThreshold = 40.0
	unrestThreshold    = 40.0
)

// Relative weight of each facility when infrastructure is lacking.
var facilityWeight = map[social.Facility]float64{
	social.FacilityMarketplace: 1.0,
	social.FacilityShipyard:    0.9,
	social.FacilityTavern:      0.7,
	social.FacilityGuild:       0.8,
	social.FacilityBank:        0.8,
	social.FacilityBarracks:    0.6,
}

// DevelopmentAction is one candidate a city could take this tick.
type DevelopmentAction struct {
	Kind        DevelopmentKind `json:"kind"`
	Facility    social.Facility `json:"facility,omitempty"`
	Priority    float64         `json:"priority"`
	Cost        int             `json:"cost"`
	Viable      bool            `json:"viable"`
	Description string          `json:"description"`
}

// Governor runs city development. Per-city scores are memoised for a tick.
type Governor struct {
	gen      Generation
	infra    *memo[social.CityID, float64]
	security *memo[social.CityID, float64]
	health   *memo[social.CityID, float64]
}

// NewGovernor returns a governor with empty caches.
func NewGovernor() *Governor {
	g := &Governor{}
	g.infra = newMemo[social.CityID, float64](&g.gen)
	g.security = newMemo[social.CityID, float64](&g.gen)
	g.health = newMemo[social.CityID, float64](&g.gen)
	return g
}

// Update starts a new tick.
func (g *Governor) Update(dt float64) {
	g.gen.Advance()
}

// InfrastructureLevel scores built facilities and port capacity, 0–100.
func (g *Governor) InfrastructureLevel(c *social.City) float64 {
	return g.infra.get(c.ID, func() float64 {
		facilities := float64(c.Facilities.Count()) / float64(len(social.AllFacilities)) * 70
		port := min(float64(c.PortCapacity)*3, 30)
		return clamp100(facilities + port)
	})
}

// SecurityLevel scores effective defense and loyalty, 0–100.
func (g *Governor) SecurityLevel(c *social.City) float64 {
	return g.security.get(c.ID, func() float64 {
		defense := min(c.EffectiveDefense()*2, 100)
		return clamp100(defense*0.6 + c.LoyaltyLevel*0.4)
	})
}

// EconomicHealth scores wealth, stability and trade volume, 0–100.
func (g *Governor) EconomicHealth(c *social.City) float64 {
	return g.health.get(c.ID, func() float64 {
		wealth := min(float64(c.Wealth)/200, 50)
		trade := min(float64(c.TradingVolume)/100, 20)
		return clamp100(wealth + c.Stability*0.3 + trade)
	})
}

// EvaluateDevelopmentActions returns every candidate action, highest priority
// first. Ties keep candidate order.
func (g *Governor) EvaluateDevelopmentActions(c *social.City) []DevelopmentAction {
	health := g.EconomicHealth(c)
	scale := 0.5 + health/100

	var actions []DevelopmentAction

	infraGap := 100 - g.InfrastructureLevel(c)
	for _, f := range social.AllFacilities {
		if c.Facilities.Has(f) {
			continue
		}
		req, _ := f.Requirement()
		actions = append(actions, DevelopmentAction{
			Kind:        DevelopBuildFacility,
			Facility:    f,
			Priority:    infraGap * facilityWeight[f] * scale,
			Cost:        req.Cost,
			Viable:      c.CanBuild(f) == nil,
			Description: fmt.Sprintf("build %s", f),
		})
	}

	securityGap := 100 - g.SecurityLevel(c)
	actions = append(actions, DevelopmentAction{
		Kind:        DevelopImproveDefense,
		Priority:    securityGap * 0.8 * scale,
		Cost:        defenseCost,
		Viable:      c.Wealth >= defenseCost,
		Description: "drill the militia",
	})

	if health < lowHealthThreshold && c.TaxRate < maxTaxRate {
		actions = append(actions, DevelopmentAction{
			Kind:        DevelopRaiseTaxes,
			Priority:    (lowHealthThreshold - health) * 1.2,
			Viable:      true,
			Description: "raise taxes",
		})
	}

	if c.Stability < unrestThreshold && c.TaxRate > 0 {
		actions = append(actions, DevelopmentAction{
			Kind:        DevelopLowerTaxes,
			Priority:    (unrestThreshold - c.Stability) * 1.5,
			Viable:      true,
			Description: "lower taxes",
		})
	}

	tradeGap := 100 - min(float64(c.TradingVolume)/20, 100)
	actions = append(actions, DevelopmentAction{
		Kind:        DevelopPromoteTrade,
		Priority:    tradeGap * 0.5 * scale,
		Cost:        promotionCost,
		Viable:      c.Wealth >= promotionCost,
		Description: "fund a trade fair",
	})

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority > actions[j].Priority
	})
	return actions
}

// ExecuteBestAction applies the highest-priority viable action. ok is false
// when nothing was viable.
func (g *Governor) ExecuteBestAction(c *social.City) (DevelopmentAction, bool) {
	for _, a := range g.EvaluateDevelopmentActions(c) {
		if !a.Viable {
			continue
		}
		if err := g.apply(c, a); err != nil {
			continue
		}
		g.infra.forget(c.ID)
		g.security.forget(c.ID)
		g.health.forget(c.ID)
		return a, true
	}
	return DevelopmentAction{}, false
}

func (g *Governor) apply(c *social.City, a DevelopmentAction) error {
	switch a.Kind {
	case DevelopBuildFacility:
		return c.BuildFacility(a.Facility)
	case DevelopImproveDefense:
		c.Wealth -= defenseCost
		c.DefenseLevel += defenseStep
	case DevelopRaiseTaxes:
		c.TaxRate = min(c.TaxRate+taxStep, maxTaxRate)
		c.Wealth += c.Population * taxStep / 100
		c.Stability = max(c.Stability-taxStabilityShift, 0)
	case DevelopLowerTaxes:
		c.TaxRate = max(c.TaxRate-taxStep, 0)
		c.Stability = min(c.Stability+taxStabilityShift, 100)
	case DevelopPromoteTrade:
		c.Wealth -= promotionCost
		c.Influence += 2
		c.TradingVolume += max(c.TradingVolume/10, 1)
	}
	return nil
}

func clamp100(v float64) float64 {
	return min(max(v, 0), 100)
}
