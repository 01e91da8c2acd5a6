package normalize_test

import (
	"testing"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/normalize"
	"github.com/alexanderramin/remediate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNormalizer() *normalize.Normalizer {
	return normalize.New(normalize.DefaultOptions())
}

func TestCampaign_GroupsByEntityAndRequirement(t *testing.T) {
	a1 := testutil.NewTestAnswer("Is MFA enforced?", testutil.WithRequirement("ISO-A.9"), testutil.WithControlPoints("CP-1", "CP-2"))
	a2 := testutil.NewTestAnswer("Are admin accounts reviewed?", testutil.WithRequirement("ISO-A.9"), testutil.WithControlPoints("CP-2", "CP-3"))
	a3 := testutil.NewTestAnswer("Is MFA enforced?", testutil.WithRequirement("ISO-A.9"), testutil.WithEntity("ent-2", "Branch"))
	a4 := testutil.NewTestAnswer("Is there a backup policy?")
	origin := testutil.NewTestCampaign("t1", testutil.WithAnswers(a1, a2, a3, a4))

	got, err := newNormalizer().Normalize(origin)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "req:ent-1:ISO-A.9", got[0].SourceKey)
	assert.Equal(t, []string{a1.ID, a2.ID}, got[0].SourceAnswerIDs)
	assert.Equal(t, []string{a1.QuestionID, a2.QuestionID}, got[0].SourceQuestionIDs)
	assert.Equal(t, []string{"CP-1", "CP-2", "CP-3"}, got[0].ControlPointIDs)
	assert.Len(t, got[0].Signals, 2)
	assert.Equal(t, 0, got[0].OrderIndex)

	assert.Equal(t, "req:ent-2:ISO-A.9", got[1].SourceKey)
	assert.Equal(t, "ent-2", got[1].EntityID)
	assert.Equal(t, 1, got[1].OrderIndex)

	assert.Equal(t, "q:ent-1:"+a4.QuestionID, got[2].SourceKey)
	assert.Equal(t, "Is there a backup policy?", got[2].Title)
	assert.Equal(t, 2, got[2].OrderIndex)

	for _, c := range got {
		assert.Equal(t, domain.OriginCampaign, c.Kind)
		assert.Equal(t, "t1", c.TenantID)
		assert.Equal(t, origin.Code, c.ScopeToken)
	}
}

func TestCampaign_EmptyCollectionsAreNotNil(t *testing.T) {
	a := testutil.NewTestAnswer("Is logging enabled?")
	got, err := newNormalizer().Normalize(testutil.NewTestCampaign("t1", testutil.WithAnswers(a)))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.NotNil(t, got[0].ControlPointIDs)
	assert.Empty(t, got[0].ControlPointIDs)
	assert.NotNil(t, got[0].CVEIDs)
}

func TestCampaign_NoAnswersYieldsEmptySlice(t *testing.T) {
	got, err := newNormalizer().Normalize(testutil.NewTestCampaign("t1"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCampaign_CustomizationAttachedBySourceKey(t *testing.T) {
	title := "Roll out MFA"
	a := testutil.NewTestAnswer("Is MFA enforced?", testutil.WithRequirement("R1"))
	origin := testutil.NewTestCampaign("t1",
		testutil.WithAnswers(a),
		testutil.WithCampaignCustomization("req:ent-1:R1", domain.Customization{Title: &title}),
	)

	got, err := newNormalizer().Normalize(origin)
	require.NoError(t, err)
	require.NotNil(t, got[0].Override)
	assert.Equal(t, title, *got[0].Override.Title)
}

func TestCampaign_DescriptionFromComments(t *testing.T) {
	a1 := testutil.NewTestAnswer("Q1", testutil.WithRequirement("R1"))
	a1.Comment = "No MFA on VPN"
	a2 := testutil.NewTestAnswer("Q2", testutil.WithRequirement("R1"))
	a2.Comment = "No MFA on VPN"
	a2.Recommendation = "Enable MFA"

	got, err := newNormalizer().Normalize(testutil.NewTestCampaign("t1", testutil.WithAnswers(a1, a2)))
	require.NoError(t, err)
	assert.Equal(t, "No MFA on VPN", got[0].Description)
	assert.Equal(t, "Enable MFA", got[0].Recommendation)
}

func TestCampaign_AnswerWithoutQuestionRejected(t *testing.T) {
	a := testutil.NewTestAnswer("Q")
	a.QuestionID = ""
	_, err := newNormalizer().Normalize(testutil.NewTestCampaign("t1", testutil.WithAnswers(a)))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOrigin_MissingTenantRejected(t *testing.T) {
	_, err := newNormalizer().Normalize(testutil.NewTestCampaign(""))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestScan_DefaultFilterDropsLowAndRemediated(t *testing.T) {
	origin := testutil.NewTestScan("t1", testutil.WithVulnerabilities(
		testutil.NewTestVulnerability("Weak cipher", "LOW"),
		testutil.NewTestVulnerability("Banner leak", "INFO"),
		testutil.NewTestVulnerability("Old OpenSSH", "HIGH", testutil.WithRemediated()),
		testutil.NewTestVulnerability("TLS 1.0", "medium"),
	))

	got, err := newNormalizer().Normalize(origin)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TLS 1.0", got[0].Title)
}

func TestScan_ExplicitFilter(t *testing.T) {
	origin := testutil.NewTestScan("t1",
		testutil.WithVulnerabilities(
			testutil.NewTestVulnerability("Weak cipher", "LOW"),
			testutil.NewTestVulnerability("Banner leak", "Informational"),
			testutil.NewTestVulnerability("Old OpenSSH", "HIGH", testutil.WithRemediated()),
		),
		testutil.WithScanFilter(domain.ScanFilter{Severities: []string{"low"}, IncludeRemediated: true}),
	)

	got, err := newNormalizer().Normalize(origin)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Weak cipher", got[0].Title)
	assert.Equal(t, "Banner leak", got[1].Title)
}

func TestScan_OrderBySeverityThenScore(t *testing.T) {
	medium := testutil.NewTestVulnerability("medium", "MEDIUM", testutil.WithScore(5.0))
	highNoScore := testutil.NewTestVulnerability("high-noscore", "HIGH")
	highLow := testutil.NewTestVulnerability("high-7.1", "HIGH", testutil.WithScore(7.1))
	highTop := testutil.NewTestVulnerability("high-8.8", "HIGH", testutil.WithScore(8.8))
	critical := testutil.NewTestVulnerability("critical", "CRITICAL", testutil.WithScore(9.8))
	highNoScore2 := testutil.NewTestVulnerability("high-noscore-2", "HIGH")

	origin := testutil.NewTestScan("t1", testutil.WithVulnerabilities(medium, highNoScore, highLow, highTop, critical, highNoScore2))
	got, err := newNormalizer().Normalize(origin)
	require.NoError(t, err)

	var titles []string
	for i, c := range got {
		titles = append(titles, c.Title)
		assert.Equal(t, i, c.OrderIndex)
	}
	assert.Equal(t, []string{"critical", "high-8.8", "high-7.1", "high-noscore", "high-noscore-2", "medium"}, titles)
}

func TestScan_OneCandidatePerVulnerability(t *testing.T) {
	v := testutil.NewTestVulnerability("OpenSSH 7.2 user enumeration", "HIGH",
		testutil.WithPort(22), testutil.WithCVEs("CVE-2016-6210", "CVE-2016-6210", "CVE-2018-15473"), testutil.WithScore(7.5))
	origin := testutil.NewTestScan("t1", testutil.WithScanCode("SCAN_EDGE"), testutil.WithVulnerabilities(v))

	got, err := newNormalizer().Normalize(origin)
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, domain.OriginScan, c.Kind)
	assert.Equal(t, "vuln:"+v.ID, c.SourceKey)
	assert.Equal(t, v.ID, c.VulnerabilityID)
	assert.Equal(t, "SCAN_EDGE", c.ScopeToken)
	assert.Equal(t, []string{"CVE-2016-6210", "CVE-2018-15473"}, c.CVEIDs)
	assert.Equal(t, "https://nvd.nist.gov/vuln/detail/CVE-2016-6210", c.ReferenceURL)
	require.NotNil(t, c.Port)
	assert.Equal(t, 22, *c.Port)
	assert.Equal(t, "HIGH", c.RawSeverity)
	assert.NotNil(t, c.SourceAnswerIDs)
	assert.NotNil(t, c.ControlPointIDs)
}

func TestScan_NoCVEMeansNoReference(t *testing.T) {
	origin := testutil.NewTestScan("t1", testutil.WithVulnerabilities(testutil.NewTestVulnerability("Open redirect", "MEDIUM")))
	got, err := newNormalizer().Normalize(origin)
	require.NoError(t, err)
	assert.Empty(t, got[0].ReferenceURL)
}

func TestScan_UnknownSeverityPassesThrough(t *testing.T) {
	origin := testutil.NewTestScan("t1", testutil.WithVulnerabilities(testutil.NewTestVulnerability("Odd", "SEVERE")))
	got, err := newNormalizer().Normalize(origin)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SEVERE", got[0].RawSeverity)
}

func TestScan_MissingTitleRejected(t *testing.T) {
	v := testutil.NewTestVulnerability(" ", "HIGH")
	_, err := newNormalizer().Normalize(testutil.NewTestScan("t1", testutil.WithVulnerabilities(v)))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)
}

func TestScan_DuplicateVulnerabilityIDRejected(t *testing.T) {
	v := testutil.NewTestVulnerability("Outdated nginx", "HIGH")
	dup := testutil.NewTestVulnerability("Outdated nginx again", "CRITICAL")
	dup.ID = v.ID
	_, err := newNormalizer().Normalize(testutil.NewTestScan("t1", testutil.WithVulnerabilities(v, dup)))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "vulnerability "+v.ID, ve.Record)
	assert.Equal(t, "id", ve.Field)
}

func TestCampaign_DuplicateAnswerIDRejected(t *testing.T) {
	a := testutil.NewTestAnswer("Q1")
	dup := testutil.NewTestAnswer("Q2")
	dup.ID = a.ID
	_, err := newNormalizer().Normalize(testutil.NewTestCampaign("t1", testutil.WithAnswers(a, dup)))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "answer "+a.ID, ve.Record)
}
