package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/remediate/internal/domain"
)

// FormatPlanList renders one row per plan.
func FormatPlanList(plans []*domain.Plan) string {
	if len(plans) == 0 {
		return Dim("No plans.") + "\n"
	}
	cols := []Column{
		{Title: "ID"}, {Title: "ORIGIN"}, {Title: "SCOPE"}, {Title: "STATUS"},
		{Title: "ITEMS", Right: true}, {Title: "VALIDATED", Right: true}, {Title: "UPDATED"},
	}
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			TruncID(p.ID),
			string(p.OriginKind),
			Bold(p.ScopeToken),
			PlanStatusPill(p.Status),
			fmt.Sprintf("%d", p.Counts.Total),
			fmt.Sprintf("%d", p.Counts.Validated),
			HumanDate(p.UpdatedAt),
		})
	}
	return RenderColumns(cols, rows)
}

// FormatPlanSummary renders plan metadata, severity counters and review
// progress.
func FormatPlanSummary(p *domain.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Dim("Plan:    "), p.ID)
	fmt.Fprintf(&b, "%s %s %s\n", Dim("Origin:  "), p.OriginKind, p.OriginID)
	fmt.Fprintf(&b, "%s %s\n", Dim("Scope:   "), Bold(p.ScopeToken))
	fmt.Fprintf(&b, "%s %s\n", Dim("Status:  "), PlanStatusPill(p.Status))
	if p.GeneratedAt != nil {
		fmt.Fprintf(&b, "%s %s by %s\n", Dim("Generated:"), HumanDate(*p.GeneratedAt), OrDash(p.GeneratedBy))
	}
	if p.PublishedAt != nil {
		fmt.Fprintf(&b, "%s %s by %s\n", Dim("Published:"), HumanDate(*p.PublishedAt), OrDash(p.PublishedBy))
	}
	if p.LastError != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("Last error:"), StyleRed.Render(p.LastError))
	}

	c := p.Counts
	fmt.Fprintf(&b, "\n%s %s  %s  %s  %s\n", Dim("Severity:"),
		SeverityColor(domain.SeverityCritical).Render(fmt.Sprintf("%d critical", c.Critical)),
		SeverityColor(domain.SeverityHigh).Render(fmt.Sprintf("%d high", c.High)),
		SeverityColor(domain.SeverityMedium).Render(fmt.Sprintf("%d medium", c.Medium)),
		SeverityColor(domain.SeverityLow).Render(fmt.Sprintf("%d low", c.Low)),
	)

	reviewed := c.Validated + c.Excluded + c.Published
	pct := 0.0
	if c.Total > 0 {
		pct = float64(reviewed) / float64(c.Total)
	}
	fmt.Fprintf(&b, "%s %s  %s\n", Dim("Review:  "), RenderProgress(pct, 20),
		Dim(fmt.Sprintf("%d validated, %d excluded, %d published of %d", c.Validated, c.Excluded, c.Published, c.Total)))
	return b.String()
}

// FormatPlanDetail renders the plan summary followed by its items in
// display order.
func FormatPlanDetail(p *domain.Plan, items []*domain.Item) string {
	var b strings.Builder
	b.WriteString(FormatPlanSummary(p))
	b.WriteString("\n")
	b.WriteString(FormatItemList(items))
	return b.String()
}

func FormatItemList(items []*domain.Item) string {
	if len(items) == 0 {
		return Dim("No items.") + "\n"
	}
	cols := []Column{
		{Title: "CODE"}, {Title: "SEVERITY"}, {Title: "PRIO"}, {Title: "DUE", Right: true},
		{Title: "STATUS"}, {Title: "ASSIGNEE"}, {Title: "TITLE", Max: 60},
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		code := Bold(it.Code)
		if !it.Included {
			code = Dim(it.Code)
		}
		rows = append(rows, []string{
			code,
			SeverityBadge(it.Severity),
			PriorityBadge(it.Priority),
			fmt.Sprintf("%dd", it.DueDays),
			ItemStatusPill(it.Status),
			assigneeLabel(it.Assignee),
			it.Title,
		})
	}
	return RenderColumns(cols, rows)
}

// FormatItemDetail renders every field a reviewer needs, including the
// justification for each derived value.
func FormatItemDetail(it *domain.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s  %s\n", Bold(it.Code), SeverityBadge(it.Severity), PriorityBadge(it.Priority), ItemStatusPill(it.Status))
	fmt.Fprintf(&b, "%s\n\n", Bold(it.Title))
	if it.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", it.Description)
	}
	if it.Recommendation != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("Recommendation:"), it.Recommendation)
	}
	fmt.Fprintf(&b, "%s %s\n", Dim("Item ID:       "), it.ID)
	fmt.Fprintf(&b, "%s %s\n", Dim("Entity:        "), OrDash(entityLabel(it.EntityID, it.EntityName)))
	fmt.Fprintf(&b, "%s %d days\n", Dim("Due in:        "), it.DueDays)
	fmt.Fprintf(&b, "%s %s\n", Dim("Suggested role:"), OrDash(it.SuggestedRole))
	fmt.Fprintf(&b, "%s %s %s\n", Dim("Assignee:      "), assigneeLabel(it.Assignee), Dim("("+string(it.Method)+")"))

	switch it.OriginKind {
	case domain.OriginScan:
		fmt.Fprintf(&b, "%s %s\n", Dim("Service:       "), OrDash(serviceLabel(it)))
		fmt.Fprintf(&b, "%s %s\n", Dim("CVEs:          "), OrDash(strings.Join(it.CVEIDs, ", ")))
		if it.CVSSScore != nil {
			fmt.Fprintf(&b, "%s %.1f\n", Dim("CVSS:          "), *it.CVSSScore)
		}
		if it.ReferenceURL != "" {
			fmt.Fprintf(&b, "%s %s\n", Dim("Reference:     "), it.ReferenceURL)
		}
	case domain.OriginCampaign:
		fmt.Fprintf(&b, "%s %s\n", Dim("Questions:     "), OrDash(strings.Join(it.SourceQuestionIDs, ", ")))
		fmt.Fprintf(&b, "%s %s\n", Dim("Control points:"), OrDash(strings.Join(it.ControlPointIDs, ", ")))
	}

	j := it.Justification
	b.WriteString("\n")
	b.WriteString(Header("Why"))
	b.WriteString("\n")
	for _, line := range [][2]string{
		{"action", j.WhyAction},
		{"severity", j.WhySeverity},
		{"priority", j.WhyPriority},
		{"role", j.WhyRole},
		{"due days", j.WhyDueDays},
	} {
		fmt.Fprintf(&b, "  %s %s\n", StyleBlue.Render(fmt.Sprintf("%-9s", line[0])), line[1])
	}
	return b.String()
}

// FormatActionList renders published actions with due dates relative to now.
func FormatActionList(actions []*domain.PublishedAction, now time.Time) string {
	if len(actions) == 0 {
		return Dim("No actions.") + "\n"
	}
	cols := append(Cols("CODE", "SOURCE", "SEVERITY", "PRIO", "DUE", "ASSIGNEE"), Column{Title: "TITLE", Max: 60})
	rows := make([][]string, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, []string{
			Bold(a.Code),
			string(a.SourceType),
			SeverityBadge(a.Severity),
			PriorityBadge(a.Priority),
			DueDateStyled(a.DueDate, now),
			assigneeLabel(a.Assignee),
			a.Title,
		})
	}
	return RenderColumns(cols, rows)
}

// FormatPublishOutcome summarizes a publication.
func FormatPublishOutcome(p *domain.Plan, actions []*domain.PublishedAction, already bool, now time.Time) string {
	var b strings.Builder
	if already {
		fmt.Fprintf(&b, "%s plan %s was already published; %d action(s) exist.\n", StyleYellow.Render("●"), p.ScopeToken, len(actions))
	} else {
		fmt.Fprintf(&b, "%s published %d action(s) from plan %s.\n", StyleGreen.Render("✔"), len(actions), p.ScopeToken)
	}
	b.WriteString("\n")
	b.WriteString(FormatActionList(actions, now))
	return b.String()
}

func FormatContacts(contacts []*domain.Contact) string {
	if len(contacts) == 0 {
		return Dim("No contacts.") + "\n"
	}
	headers := []string{"ROLE", "ENTITY", "CAMPAIGN", "CONTACT", "NAME", "EMAIL"}
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{
			StylePurple.Render(c.Role),
			OrDash(c.EntityID),
			OrDash(c.CampaignID),
			c.ContactID,
			OrDash(c.Name),
			OrDash(c.Email),
		})
	}
	return RenderTable(headers, rows)
}

func assigneeLabel(a *domain.Assignee) string {
	if a == nil {
		return StyleYellow.Render("unassigned")
	}
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

func entityLabel(id, name string) string {
	switch {
	case name != "" && id != "":
		return fmt.Sprintf("%s (%s)", name, id)
	case name != "":
		return name
	default:
		return id
	}
}

func serviceLabel(it *domain.Item) string {
	parts := make([]string, 0, 3)
	if it.ServiceName != "" {
		parts = append(parts, it.ServiceName)
	}
	if it.ServiceVersion != "" {
		parts = append(parts, it.ServiceVersion)
	}
	if it.Port != nil {
		port := fmt.Sprintf("%d", *it.Port)
		if it.Protocol != "" {
			port += "/" + it.Protocol
		}
		parts = append(parts, port)
	}
	return strings.Join(parts, " ")
}
