package rules

import (
	"strings"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/model"
)

func dataSubjectRights() Rule {
	return Rule{
		ID:          "data-subject-rights",
		Description: `No "right to be forgotten" or data export mechanism`,
		Severity:    model.SeverityMedium,
		Check: func(doc docmodel.Document) (*Result, error) {
			footers := doc.QueryElements("footer")
			if len(footers) == 0 {
				return &Result{Issue: "Cannot check data rights (no footer)"}, nil
			}

			footerText := footers[0].Text()
			hasDeleteData := strings.Contains(footerText, "delete") || strings.Contains(footerText, "forget")
			hasExportData := strings.Contains(footerText, "export") || strings.Contains(footerText, "download")

			if !hasDeleteData || !hasExportData {
				return &Result{
					Issue:      "Missing data deletion/export options",
					Suggestion: `Add "Data Deletion Request" or "Download My Data" link`,
				}, nil
			}
			return nil, nil
		},
	}
}

func rightToAccess() Rule {
	return Rule{
		ID:          "right-to-access",
		Description: "No mechanism for users to request access to their data",
		Severity:    model.SeverityMedium,
		Check: func(doc docmodel.Document) (*Result, error) {
			bodyText := doc.TextContent("")
			hasAccess := strings.Contains(bodyText, "access my data") ||
				strings.Contains(bodyText, "request my data") ||
				strings.Contains(bodyText, "data subject access request") ||
				strings.Contains(bodyText, "dsar")

			if !hasAccess {
				return &Result{
					Issue:      "No mechanism for data access requests found",
					Suggestion: `Add "Request My Data" form or email contact`,
				}, nil
			}
			return nil, nil
		},
	}
}

func rightToPortability() Rule {
	return Rule{
		ID:          "right-to-portability",
		Description: "No mention of right to data portability",
		Severity:    model.SeverityLow,
		Check: func(doc docmodel.Document) (*Result, error) {
			bodyText := doc.TextContent("")
			hasPortability := strings.Contains(bodyText, "portability") ||
				strings.Contains(bodyText, "portable") ||
				strings.Contains(bodyText, "export my data")

			if !hasPortability {
				return &Result{
					Issue:      "Right to data portability not mentioned",
					Suggestion: "Inform users of their right to receive their data in portable format",
				}, nil
			}
			return nil, nil
		},
	}
}

func internationalTransfer() Rule {
	return Rule{
		ID:          "international-transfer",
		Description: "No mention of international data transfer rights",
		Severity:    model.SeverityLow,
		Check: func(doc docmodel.Document) (*Result, error) {
			bodyText := doc.TextContent("")
			hasTransfer := strings.Contains(bodyText, "transfer") || strings.Contains(bodyText, "international")

			if !hasTransfer {
				return &Result{
					Issue:      "No mention of international data transfer rights",
					Suggestion: `Add "Your data may be transferred internationally" to privacy policy`,
				}, nil
			}
			return nil, nil
		},
	}
}
