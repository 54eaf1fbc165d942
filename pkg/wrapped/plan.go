package wrapped

import "fmt"

// maxSteps is the hard ceiling on search steps for one build.
const maxSteps = 16

type Step struct {
	Name  string
	Query string
}

// Plan returns the fixed search sequence for a user and year.
func Plan(username string, year int) []Step {
	h := "@" + username
	return []Step{
		{"profile", fmt.Sprintf("Who is %s on X? Describe their profile, bio and what they are known for.", h)},
		{"top_posts", fmt.Sprintf("Find the most liked and most reposted posts by %s in %d.", h, year)},
		{"themes", fmt.Sprintf("What recurring themes and subjects did %s post about in %d?", h, year)},
		{"q1", fmt.Sprintf("Posts by %s from January to March %d.", h, year)},
		{"q2", fmt.Sprintf("Posts by %s from April to June %d.", h, year)},
		{"q3", fmt.Sprintf("Posts by %s from July to September %d.", h, year)},
		{"q4", fmt.Sprintf("Posts by %s from October to December %d.", h, year)},
		{"thread_discovery", fmt.Sprintf("Find threads (multi-post series) written by %s in %d.", h, year)},
		{"thread_fetch", fmt.Sprintf("Show the full text of the longest threads by %s in %d.", h, year)},
		{"announcements", fmt.Sprintf("Announcements, launches or news shared by %s in %d.", h, year)},
		{"opinions", fmt.Sprintf("Strong opinions or hot takes posted by %s in %d.", h, year)},
		{"mentions", fmt.Sprintf("Conversations and replies where %s engaged with other accounts in %d.", h, year)},
		{"learning", fmt.Sprintf("Things %s said they learned, read or recommended in %d.", h, year)},
		{"reflection", fmt.Sprintf("Posts where %s reflected on the year %d or on personal milestones.", h, year)},
		{"style_sample", fmt.Sprintf("Typical short everyday posts by %s in %d that show their writing style.", h, year)},
		{"edge_cases", fmt.Sprintf("Quote posts, polls or unusual posts by %s in %d.", h, year)},
	}
}
