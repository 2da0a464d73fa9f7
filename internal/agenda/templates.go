package agenda

// UnmappedPolicy decides what the drafting stage does when a valid
// engagement type (e.g. HACKATHON, CONSULT) has no agenda template of its
// own.
type UnmappedPolicy string

const (
	// UnmappedUseDefault silently drafts with the default type's template.
	UnmappedUseDefault UnmappedPolicy = "use_default"
	// UnmappedAskUser asks the user how to proceed instead of guessing.
	UnmappedAskUser UnmappedPolicy = "ask_user"
)

// templates maps engagement types to their agenda drafting instructions.
// HACKATHON and CONSULT intentionally have no entry; see UnmappedPolicy.
var templates = map[EngagementType]string{
	BusinessEnvisioning: templateBusinessEnvisioning,
	SolutionEnvisioning: templateSolutionEnvisioning,
	RapidPrototype:      templateRapidPrototype,
	ADS:                 templateADS,
}

// TemplateFor returns the drafting template for the given engagement type
// and whether one is mapped.
func TemplateFor(t EngagementType) (string, bool) {
	tpl, ok := templates[t]
	return tpl, ok
}

// ResolveTemplate applies the unmapped-category policy: it returns the
// mapped template, or under UnmappedUseDefault the default type's template.
// The second result is false only when the policy defers to the user.
func ResolveTemplate(t EngagementType, policy UnmappedPolicy) (string, bool) {
	if tpl, ok := templates[t]; ok {
		return tpl, true
	}
	if policy == UnmappedAskUser {
		return "", false
	}
	return templates[DefaultEngagementType], true
}

const templateBusinessEnvisioning = `# Innovation Hub Agenda Format for Business Envisioning

**Agenda for Innovation Hub Session**
Engagement Type: $EngagementType
Customer Name: $CustomerName
Date: $Date (format - DD-MMM-YYYY)
Location: $LocationName

| Time (IST) | Speaker | Topic | Description |
|------------|---------|-------|-------------|
| <$StartTime> - <$EndTime> | $SpeakerName | <$TopicTitle> | $TopicDescription |

**Instructions**
- Generate the agenda topics from the goals under ### Engagement Goals Confirmation Message ###.
- Topics and descriptions must be non-technical, driven by business and domain use case scenarios.
- No single topic spans more than 1.5 hours; 1 hour is ideal; 30 minutes is acceptable.
- The first topic is always "Welcome & Introductions"; the last is always "Wrap up & discuss next steps".
- Topics involving the customer's leadership team come right after the introductions, followed by keynote and trends topics.
- Sessions start at 10 AM unless the context indicates otherwise; insert a 15-minute break every 2 hours and a 1-hour lunch between 1 PM and 2 PM.
- Conclude by 5 PM; confirm with the user before extending to 6 PM or splitting across days.
- Assign speakers only from the hub master data speaker table; mark unmatched topics as "TBD" or ask the user. Never invent speaker names.`

const templateSolutionEnvisioning = `# Innovation Hub Agenda Format for Solution Envisioning

**Agenda for Innovation Hub Session**
Engagement Type: $EngagementType
Customer Name: $CustomerName
Date: $Date (format - DD-MMM-YYYY)
Location: $LocationName

| Time (IST) | Speaker | Topic | Description |
|------------|---------|-------|-------------|
| <$StartTime> - <$EndTime> | $SpeakerName | <$TopicTitle> | $TopicDescription |

**Instructions**
- Generate the agenda topics from the goals under ### Engagement Goals Confirmation Message ###.
- Map each customer goal to Microsoft technology areas; topics may mix business framing with technical demos since the audience is business plus technical.
- The first topic is always "Welcome & Introductions"; the last is always "Wrap up & discuss next steps".
- Include a solution demonstration or art-of-the-possible segment per major goal.
- Sessions start at 10 AM by default; 15-minute break every 2 hours; 1-hour lunch between 1 PM and 2 PM; conclude by 5 PM unless the user approves extending.
- Assign speakers only from the hub master data speaker table, preferring exact topic keyword matches, then category matches; otherwise "TBD" or ask the user.`

const templateRapidPrototype = `# Innovation Hub Agenda Format for Rapid Prototype

**Agenda for Innovation Hub Session**
Engagement Type: $EngagementType
Customer Name: $CustomerName
Date: $Date (format - DD-MMM-YYYY)
Location: $LocationName

| Time (IST) | Speaker | Topic | Description |
|------------|---------|-------|-------------|
| 10:00-10:15 AM | Moderator | **Welcome & Introductions** | The customer team shares top of mind and expected takeaways. |
| 10:15-11:15 AM | Customer Dev Team, MS Architects | **Understanding the Requirements & Goals behind Use Case** | Functional and operational requirements, architecture options, service and access readiness. |
| 11:15-1:30 PM | Customer Dev Team, MS Architects | **Build the Prototype** | Development, deployment, testing and validation of the use case implementation. |
| 1:30-2:30 PM | | **Lunch** | |
| 2:30-4:15 PM | Customer Dev Team, MS Architects | **Build the Prototype - continued** | Development, deployment, testing and validation of the use case implementation. |
| 4:15-5:00 PM | | **Wrap up & discuss next steps** | |

**Instructions**
- Repeat the understand/build block per use case found under ### Engagement Goals Confirmation Message ###, extracting a ~15 word use case description and its goals.
- Keep the block durations; derive concrete start and end times from the actual session start.
- When the agenda spills past 5 PM, ask the user about extending to 6 PM or splitting into two days.`

const templateADS = `# Innovation Hub Agenda Format for Architecture & Design Session

**Agenda for Innovation Hub Session**
Engagement Type: $EngagementType
Customer Name: $CustomerName
Date: $Date (format - DD-MMM-YYYY)
Location: $LocationName

| Time (IST) | Speaker | Topic | Description |
|------------|---------|-------|-------------|
| <$StartTime> - <$EndTime> | $SpeakerName | <$TopicTitle> | $TopicDescription |

**Instructions**
- Map each goal and its details under ### Engagement Goals Confirmation Message ### to architecture review line items: current state walkthrough, requirements deep dive, design options, and recommendations.
- Topics are technical; schedule a whiteboarding segment per major architectural decision.
- The first topic is always "Welcome & Introductions"; the last is always "Wrap up & discuss next steps".
- Sessions start at 10 AM by default; 15-minute break every 2 hours; 1-hour lunch between 1 PM and 2 PM; conclude by 5 PM unless the user approves extending.
- Assign speakers only from the hub master data speaker table; technical deep dives go to the technical architects; otherwise "TBD" or ask the user.`
