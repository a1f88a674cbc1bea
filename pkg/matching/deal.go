package matching

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
)

var (
	// dealNoise matches CRM naming conventions that carry no company information
	dealNoise  = regexp.MustCompile(`(?i)\([^)]*\)|\[[^\]]*\]|\b(?:deal|renewal|expansion|upsell|poc|pilot|opportunity|opp|new business)\b|\bq[1-4](?:\s*'?\d{2,4})?\b|\bfy\s*'?\d{2,4}\b|\b(?:19|20)\d{2}\b`)
	dealSpaces = regexp.MustCompile(`\s+`)
)

// CleanDealName strips CRM noise words, periods and parenthesised notes from a deal name
func CleanDealName(name string) string {
	cleaned := dealNoise.ReplaceAllString(name, " ")
	cleaned = dealSpaces.ReplaceAllString(cleaned, " ")
	return strings.Trim(cleaned, " -_:|/,")
}

// DealMatch is a CRM deal attributed to a company
type DealMatch struct {
	DealID     string  `json:"deal_id"`
	Confidence float64 `json:"confidence"`
}

// MatchDeal decides whether a CRM deal belongs to the company
func (m *Matcher) MatchDeal(company *models.Company, deal *models.DealRecord) (DealMatch, bool) {
	result := DealMatch{DealID: deal.ID}
	cleaned := CleanDealName(deal.Name)
	if cleaned == "" || !m.MatchCompanyToChannel(company, cleaned, "") {
		return result, false
	}
	result.Confidence = m.CalculateConfidence(company, cleaned)
	return result, true
}
