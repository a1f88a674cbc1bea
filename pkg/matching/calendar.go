package matching

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// FreeMailDomains never identify a company
var FreeMailDomains = []string{
	"gmail.com", "googlemail.com", "outlook.com", "hotmail.com", "live.com",
	"yahoo.com", "icloud.com", "me.com", "aol.com", "proton.me", "protonmail.com",
}

var freeMailDomainSet = func() map[string]bool {
	set := make(map[string]bool, len(FreeMailDomains))
	for _, d := range FreeMailDomains {
		set[d] = true
	}
	return set
}()

// secondLevelLabels are skipped when picking the label that names an organisation ("acme.co.uk")
var secondLevelLabels = map[string]bool{"co": true, "com": true, "org": true, "net": true, "ac": true, "gov": true}

// titleSeparator splits meeting titles such as "Acme <> Us", "Sync with Acme" or "Acme / Us: kickoff"
var titleSeparator = regexp.MustCompile(`(?i)\s*(?:<>|/|\||:|\s-\s|\s&\s|\bx\b|\bwith\b|\bvs\.?)\s*`)

const (
	confidenceDomainLabel = 0.9
	confidenceTitleText   = 0.85
)

// MeetingMatch explains why a meeting was attributed to a company
type MeetingMatch struct {
	MeetingID  string  `json:"meeting_id"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// MatchMeeting decides whether a calendar meeting involves the company.
// Attendee email domains are checked first, then the title and description text,
// then the individual segments of the title.
func (m *Matcher) MatchMeeting(company *models.Company, meeting *models.MeetingRecord, internalDomains []string) (MeetingMatch, bool) {
	result := MeetingMatch{MeetingID: meeting.ID}
	if company == nil {
		return result, false
	}

	internal := make(map[string]bool, len(internalDomains))
	for _, d := range internalDomains {
		internal[strings.ToLower(d)] = true
	}

	companyDomain := strings.ToLower(strings.TrimSpace(company.Domain))
	for _, email := range meeting.AttendeeEmails {
		domain := normalizers.EmailDomain(email)
		if domain == "" || internal[domain] || freeMailDomainSet[domain] {
			continue
		}
		if companyDomain != "" && (domain == companyDomain || strings.HasSuffix(domain, "."+companyDomain)) {
			return MeetingMatch{MeetingID: meeting.ID, Confidence: confidenceExact, Reason: "attendee domain " + domain}, true
		}
		if label := organisationLabel(domain); label != "" && m.MatchCompanyToChannel(company, label, "") {
			result = better(result, MeetingMatch{MeetingID: meeting.ID, Confidence: confidenceDomainLabel, Reason: "attendee domain " + domain})
		}
	}

	text := normalizers.NormalizeText(meeting.Title + " " + meeting.Description)
	if text != "" && m.mentions(company, text) {
		result = better(result, MeetingMatch{MeetingID: meeting.ID, Confidence: confidenceTitleText, Reason: "mentioned in title or description"})
	}

	for _, segment := range titleSeparator.Split(meeting.Title, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" || !m.MatchCompanyToChannel(company, segment, "") {
			continue
		}
		result = better(result, MeetingMatch{
			MeetingID:  meeting.ID,
			Confidence: m.CalculateConfidence(company, segment),
			Reason:     "title segment " + segment,
		})
	}

	return result, result.Confidence > 0
}

func better(current, candidate MeetingMatch) MeetingMatch {
	if candidate.Confidence > current.Confidence {
		return candidate
	}
	return current
}

// organisationLabel returns the label of a domain that names the organisation
func organisationLabel(domain string) string {
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return ""
	}
	i := len(labels) - 2
	if i > 0 && secondLevelLabels[labels[i]] {
		i--
	}
	return labels[i]
}

// mentions reports whether any company variant occurs in the text on word boundaries
func (m *Matcher) mentions(company *models.Company, text string) bool {
	for _, re := range m.mentionPatterns(company) {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (m *Matcher) mentionPatterns(company *models.Company) []*regexp.Regexp {
	if cached, ok := m.patterns.Load(company); ok {
		return cached.([]*regexp.Regexp)
	}
	return m.buildMentionPatterns(company)
}

func (m *Matcher) buildMentionPatterns(company *models.Company) []*regexp.Regexp {
	seen := make(map[string]bool)
	var patterns []*regexp.Regexp
	for _, name := range company.Names() {
		for _, v := range m.VariantsOf(name) {
			v = normalizers.NormalizeText(v)
			if utf8.RuneCountInString(v) < 3 || seen[v] {
				continue
			}
			seen[v] = true
			patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(v)+`\b`))
		}
	}
	return patterns
}
