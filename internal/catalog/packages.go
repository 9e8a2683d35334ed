package catalog

import "time"

// CreditPackage is a purchasable bundle of group-session credits.
// One credit pays for one group-training session.
type CreditPackage struct {
	Type     string
	Credits  int
	PriceUSD float64
}

// CreditValidity is how long purchased credits stay spendable.
const CreditValidity = 120 * 24 * time.Hour

var creditPackages = map[string]CreditPackage{
	"starter_4":  {Type: "starter_4", Credits: 4, PriceUSD: 150},
	"regular_10": {Type: "regular_10", Credits: 10, PriceUSD: 350},
	"season_20":  {Type: "season_20", Credits: 20, PriceUSD: 650},
}

// PackageByType looks up a credit package by its catalog type.
func PackageByType(packageType string) (CreditPackage, bool) {
	pkg, ok := creditPackages[packageType]
	return pkg, ok
}
