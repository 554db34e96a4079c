package workflow

import "fmt"

const extractionSystem = `You are a technology researcher.
From the provided search results, name distinct tools, products or companies that
are relevant to the user's query. List only names, no commentary, most relevant first.`

const analysisSystem = `You are a technology analyst.
Given the content of a tool's website, fill in the requested fields.
Use "Unknown" where the content does not answer a field. Never invent facts.`

const synthesisSystem = `You are a technology consultant writing a comparison report.
Compare the analyzed tools against the user's original question.
Format as Markdown with a short introduction, one section per tool, and a
concluding recommendation. Mention every tool by name, including those whose
analysis was unavailable.`

func extractionUser(query, searchContext string, maxTools int) string {
	if searchContext == "" {
		searchContext = "(no search results available)"
	}
	return fmt.Sprintf("Query: %s\n\nName up to %d tools.\n\nSearch results:\n%s",
		query, maxTools, searchContext)
}

func analysisUser(name, content string) string {
	if content == "" {
		content = "(no page content available; answer from the name alone, using Unknown where unsure)"
	}
	return fmt.Sprintf("Tool: %s\n\nWebsite content:\n%s", name, content)
}

func synthesisUser(query, analysesJSON string) string {
	if analysesJSON == "" {
		return fmt.Sprintf("Query: %s\n\nNo tools were identified for this query. "+
			"Write a short report stating that no tools were found and suggest how to refine the query.", query)
	}
	return fmt.Sprintf("Query: %s\n\nTool analyses:\n%s", query, analysesJSON)
}
