package consolidate

// consolidationSystemPrompt frames the model as a requirements analyst and
// constrains it to explicitly stated requirements only.
const consolidationSystemPrompt = `You are a professional business analyst consolidating software requirements documents into a small set of high-level epics.

CRITICAL INSTRUCTIONS:
1. ONLY extract information that is EXPLICITLY stated in the provided text
2. DO NOT add features, assumptions, or interpretations beyond what is written
3. Group related requirements AGGRESSIVELY: prefer fewer, broader epics
4. Every epic must subsume the original requirement fragments it covers
5. Use exact wording from the document when possible

OUTPUT FORMAT: Return ONLY valid JSON, no explanatory text outside the JSON.`

// consolidationPrompt is the user prompt template for pass 1. The two slots
// are the epic cap and the document text.
const consolidationPrompt = `Consolidate the following requirements text into AT MOST %d business-level epics.

REQUIREMENTS TEXT:
%s

Return ONLY JSON with this exact structure:
{
  "work_items": [
    {
      "title": "Epic title (5-200 chars)",
      "description": "What this epic covers and why it matters (10-2000 chars)",
      "type": "epic",
      "priority": "low|medium|high|critical",
      "consolidated_requirements": ["original requirement fragment 1", "original requirement fragment 2"]
    }
  ],
  "summary": "Brief summary of the document's scope"
}

Guidelines:
- consolidated_requirements must quote or closely paraphrase the source fragments each epic subsumes
- Do not exceed %d epics; merge related themes rather than splitting them
- Priority reflects stated business urgency, defaulting to medium`
