package github

// Reasons maps GitHub notification reasons onto the sentence used in todo
// descriptions. Reasons missing from the table are a contract violation.
var Reasons = map[string]string{
	"approval_requested":       "You were requested to review and approve a deployment.",
	"assign":                   "You were assigned to the issue.",
	"author":                   "You created the thread.",
	"ci_activity":              "A GitHub Actions workflow run that you triggered was completed.",
	"comment":                  "You commented on the thread.",
	"invitation":               "You accepted an invitation to contribute to the repository.",
	"manual":                   "You subscribed to the thread.",
	"member_feature_requested": "Organization members have requested to enable a feature.",
	"mention":                  "You were specifically @mentioned in the content.",
	"review_requested":         "You, or a team you're a member of, were requested to review a pull request.",
	"security_advisory_credit": "You were credited for contributing to a security advisory.",
	"security_alert":           "GitHub discovered a security vulnerability in your repository.",
	"state_change":             "You changed the thread state.",
	"subscribed":               "You're watching the repository.",
	"team_mention":             "You were on a team that was mentioned.",
}
