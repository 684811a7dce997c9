package ai

import (
	"fmt"
	"strings"
)

const defaultJobTitle = "software engineering"

var sectionFormats = map[string]string{
	"contact": `Keep it concise and professional:
[Full Name]
[Email] | [Phone] | [Location]
[LinkedIn] | [Portfolio/GitHub]`,
	"experience": `For each role:
[Job Title] | [Company] | [Dates]
- Achievement-focused bullet points
- Quantifiable results
- Technical skills used`,
	"education": `[Degree] | [Institution] | [Graduation Date]
- Relevant coursework
- Academic achievements`,
	"skills": `Technical Skills:
- [Category]: [Skills]
Soft Skills:
- [Relevant soft skills]`,
	"projects": `For each project:
[Project Name] | [Technologies Used]
- Problem solved
- Impact/Results
- Key technical achievements`,
	"awards": `For each award:
[Award] | [Issuer] | [Date]
- One line on why it was given`,
}

const genericFormat = `Keep the original structure. Use short achievement-focused bullet points
and strong action verbs.`

// SectionPrompt builds the rewrite prompt for one resume section.
func SectionPrompt(section Section, jobTitle string) string {
	if strings.TrimSpace(jobTitle) == "" {
		jobTitle = defaultJobTitle
	}

	format, ok := sectionFormats[section.Name]
	if !ok {
		format = genericFormat
	}

	return fmt.Sprintf(`Optimize the following %s section of a resume for a %s position.

Original content:
%s

Output format:
%s

Return only the optimized section text.`, section.Name, jobTitle, section.Content, format)
}
