package resolve

import (
	"encoding/json"
	"os"
)

// DefaultSimilarityThreshold is the minimum fuzzy score at which a raw
// mention is folded into an existing canonical entity.
const DefaultSimilarityThreshold = 0.85

type Config struct {
	// SimilarityThreshold overrides DefaultSimilarityThreshold when > 0.
	SimilarityThreshold float64
	// Aliases maps a canonical entity name to its known alias forms
	// (ticker symbols, legal names, locale variants).
	Aliases map[string][]string
}

// DefaultAliases covers the entities that show up most often in
// supply-chain filings and news feeds. Callers extend or replace it
// through Config.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"Nvidia":       {"NVDA", "nvidia", "NVIDIA", "Nvidia Corporation", "NVIDIA Corp"},
		"TSMC":         {"TSM", "tsmc", "Taiwan Semiconductor", "Taiwan Semiconductor Manufacturing"},
		"Intel":        {"INTC", "intel", "Intel Corporation", "Intel Corp"},
		"AMD":          {"amd", "Advanced Micro Devices", "AMD Inc"},
		"Samsung":      {"Samsung Electronics", "samsung", "SSNLF"},
		"Apple":        {"AAPL", "apple", "Apple Inc"},
		"Microsoft":    {"MSFT", "microsoft", "Microsoft Corporation"},
		"ASML":         {"asml", "ASML Holding"},
		"Qualcomm":     {"QCOM", "qualcomm", "Qualcomm Incorporated"},
		"Broadcom":     {"AVGO", "broadcom", "Broadcom Inc"},
		"Micron":       {"MU", "micron", "Micron Technology"},
		"SK Hynix":     {"hynix", "SK hynix", "SKHynix"},
		"Amazon":       {"AMZN", "amazon", "Amazon.com", "AWS", "Amazon Web Services"},
		"Google Cloud": {"GOOGL", "GCP", "Google Cloud Platform"},
	}
}

// LoadAliases reads an alias table from a JSON file shaped as
// {"Canonical Name": ["alias", ...], ...}.
func LoadAliases(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var aliases map[string][]string
	if err := json.Unmarshal(data, &aliases); err != nil {
		return nil, err
	}
	return aliases, nil
}
