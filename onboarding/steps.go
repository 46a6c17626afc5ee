package onboarding

// Step describes one onboarding screen.
type Step struct {
	Label       string
	Title       string
	Description string
}

// Steps is the fixed onboarding sequence. Step numbers are 1-based indexes
// into it.
var Steps = []Step{
	{
		Label:       "Business Model",
		Title:       "Set up your business",
		Description: "Choose what best describes you. This helps us tailor your account setup and payment settings.",
	},
	{
		Label:       "Basic Details",
		Title:       "Basic Details",
		Description: "Tell us about yourself and your business details.",
	},
	{
		Label:       "Additional Info",
		Title:       "Additional Information",
		Description: "Add details that help clients understand and trust your service.",
	},
	{
		Label:       "Add your team",
		Title:       "Add Team Member",
		Description: "Tell us who will run and deliver this service.",
	},
}

// BusinessModel is the first onboarding choice.
type BusinessModel string

const (
	BusinessIndividual BusinessModel = "individual"
	BusinessInstitute  BusinessModel = "business"
)

// BusinessModelOption is the copy shown for one [BusinessModel].
type BusinessModelOption struct {
	ID          BusinessModel
	Title       string
	Description string
}

var BusinessModelOptions = []BusinessModelOption{
	{
		ID:          BusinessIndividual,
		Title:       "Individual Instructor",
		Description: "For solo instructors or coaches offering services under their own name.",
	},
	{
		ID:          BusinessInstitute,
		Title:       "Institute / Business",
		Description: "For academies, gyms, studios, or businesses with a team and multiple",
	},
}

// ParseBusinessModel accepts the option ids of [BusinessModelOptions].
func ParseBusinessModel(s string) (BusinessModel, bool) {
	for _, opt := range BusinessModelOptions {
		if string(opt.ID) == s {
			return opt.ID, true
		}
	}
	return "", false
}
