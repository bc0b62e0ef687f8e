package breakdown

// breakdownSystemPrompt frames the model for pass 2: expanding one epic into
// stories, tasks, and subtasks.
const breakdownSystemPrompt = `You are a professional business analyst breaking a single epic down into user stories, technical tasks, and subtasks.

CRITICAL INSTRUCTIONS:
1. ONLY derive items from the epic and the requirements it subsumes
2. DO NOT invent features or standard-practice work that is not stated
3. Maintain the hierarchy: the epic contains stories, stories contain tasks, tasks may have subtasks
4. parent_reference must match the exact title of the parent item

WORK ITEM TYPES:
- Story: User-facing functionality that delivers business value (days/weeks)
- Task: Technical implementation work that supports a story (hours/days)
- Subtask: Granular work within a task (hours)

OUTPUT FORMAT: Return ONLY valid JSON, no explanatory text outside the JSON.`

// breakdownPrompt is the user prompt template for pass 2. Slots: epic title,
// epic description, subsumed requirement count, document excerpt, item cap.
const breakdownPrompt = `Break down the following epic into work items.

EPIC: %s
DESCRIPTION: %s
This epic subsumes %d original requirements.

ORIGINAL DOCUMENT CONTEXT:
%s

Return ONLY JSON with this exact structure:
{
  "work_items": [
    {
      "title": "Item title (5-200 chars)",
      "description": "Detailed description (10-2000 chars)",
      "type": "story|task|subtask",
      "priority": "low|medium|high|critical",
      "acceptance_criteria": ["measurable criterion"],
      "estimated_hours": 8,
      "parent_reference": "exact title of parent item, or omit for stories under this epic"
    }
  ],
  "summary": "One sentence describing the breakdown"
}

Guidelines:
- Produce AT MOST %d work items for this epic
- Estimate hours only when the source material states effort or duration
- Acceptance criteria must be measurable and based on stated requirements%s`

// subtaskMandate is appended to the prompt when the epic subsumes enough
// requirements that task-level granularity is insufficient.
const subtaskMandate = `
- This epic is large: include subtasks under its tasks, not just tasks`
