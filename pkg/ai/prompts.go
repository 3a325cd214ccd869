package ai

const ExtractionPrompt = `
# Task Context
You are a helpful assistant specialized in building supply chain knowledge graphs. You will be provided with a chunk of text from a news article, filing, or report.

# Background Data
%s

# Detailed Task Description & Rules
- Extract every concrete entity mentioned in the text: companies, products, components, materials, locations, technologies, processes, regulations, risks, and catalysts.
- Extract every relationship the text states or strongly implies between those entities.
- Use UPPERCASE relationship types with underscores, e.g. SUPPLIES, DEPENDS_ON, PRODUCES, REQUIRES_COMPONENT, DISRUPTS, BLOCKS.
- Use the entity name exactly as it appears in the text; do not expand abbreviations or invent canonical forms.
- Attach numeric attributes you find (revenue figures, percentages, capacity, severity of a disruption) as properties on the entity or relationship they describe.
- For disruption or risk relationships, include a "severity" property between 0.0 and 1.0 when the text supports an estimate.
- Do not invent entities or relationships that are not in the text.
- Do not extract generic concepts ("the market", "the industry") as entities.

# Examples
Text: "TSMC supplies advanced chips to Nvidia. The Taiwan earthquake disrupted TSMC's Fab 18."
Entities: TSMC (Company), Nvidia (Company), Taiwan earthquake (Risk), Fab 18 (Location)
Relationships: TSMC -SUPPLIES-> Nvidia, Taiwan earthquake -DISRUPTS-> TSMC

# Immediate Task Description or Request
Return the entities and relationships found in the text as a JSON object.

# Output Formatting
Return a JSON object with this structure:
{
  "entities": [
    {"name": "<name>", "type": "<type>", "properties": {}}
  ],
  "relationships": [
    {"source": "<name>", "target": "<name>", "type": "<TYPE>", "properties": {}}
  ]
}
`

// ComposeSystemPrompt frames every composition call; the task details
// travel in the user prompt.
const ComposeSystemPrompt = `You are a supply chain analyst. You answer questions strictly from the graph evidence and numbered sources you are given, and you cite sources with [n] markers.`

const ComposePrompt = `
# Task Context
You are a supply chain analyst answering a question using evidence from a knowledge graph and a list of numbered sources.

# Question
%s

# Graph Evidence
%s

# Sources
%s

# Detailed Task Description & Rules
- Answer the question using only the graph evidence and the sources above.
- Cite every factual statement with the [n] marker of the source that supports it, e.g. "TSMC shipments fell 12%% [2]."
- Every sentence that contains a number, percentage, or amount must carry a citation.
- If the evidence is insufficient to answer, say so plainly instead of speculating.
- Write concise report prose; bullet points are fine for enumerations.
- Do not cite source numbers that do not appear in the list above.

# Immediate Task Description or Request
Write the answer now.
`

const DedupePrompt = `
# Task Context
You are a helpful assistant specialized in identifying duplicate entities in a supply chain knowledge graph. You will be provided with a list of entities.

# Background Data
%s

# Detailed Task Description & Rules
- Find entities that are duplicates of each other based on their name and type.
- Consider entities as duplicates if they represent the same real-world entity despite minor naming differences.
- Be careful: entities with distinct identities should remain separate (e.g., "Samsung Electronics" and "Samsung SDI" are separate entities).
- Choose a final, canonical name for each group of duplicate entities.
- Consider variations such as:
  * Case differences (e.g., "Acme Corp" vs "ACME CORP")
  * Added legal entity suffixes (e.g., "TSMC" vs "TSMC Ltd.")
  * Abbreviations and full names (e.g., "TSMC" vs "Taiwan Semiconductor Manufacturing Company")
  * Ticker symbols (e.g., "NVDA" vs "Nvidia")

# Examples
Consider these as duplicates:
- "Nvidia" and "Nvidia Corporation"
- "TSMC" and "Taiwan Semiconductor"
- "SK Hynix" and "SK hynix Inc."

Do NOT consider these as duplicates:
- "Samsung Electronics" and "Samsung SDI" (different business units)
- "Foxconn" and "Foxconn Industrial Internet" (different listed entities)
- "ASML" and "ASM International" (different companies)

# Immediate Task Description or Request
Return a JSON object listing groups of duplicate entities along with the chosen canonical name for each group.

# Output Formatting
Return a JSON object with this structure:
{
  "duplicates": [
    {
      "canonicalName": "<chosen final name>",
      "entities": ["<name1>", "<name2>", "<name3>"]
    }
  ]
}
`
