package generator

import (
	"fmt"
	"strings"
	"time"

	"dialogue-generator/internal/model"
)

// Агент по умолчанию в базовых промптах: его имя заменяется именем
// агента вариации.
const defaultAgentName = "Salma"

// Системный промпт для самого генератора диалогов.
const generatorSystemPrompt = "You are an expert at generating realistic debt collection conversations. Always respond with valid JSON format."

// Composer собирает итоговый запрос на генерацию из базового промпта,
// сценария, параметров вариации и фидбека прошлой попытки.
// Композиция чистая: одинаковые входы дают одинаковый результат.
type Composer struct{}

// NewComposer создает Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose строит запрос для одной попытки генерации. На первой попытке
// feedback пуст; на повторной попытке блок фидбека с нарушенными
// правилами добавляется перед основным промптом.
func (c *Composer) Compose(basePrompt string, s *model.ScenarioDefinition, v model.VariationParameters, feedback []model.Issue, attempt int) model.GenerationRequest {
	prompt := substituteVariables(basePrompt, v)
	prompt += scenarioInstructions(s)

	if len(feedback) > 0 {
		var b strings.Builder
		b.WriteString("## CRITICAL REQUIREMENTS FOR THIS RETRY:\n")
		for _, issue := range feedback {
			b.WriteString("- ")
			b.WriteString(string(issue))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		prompt = b.String() + prompt
	}

	return model.GenerationRequest{
		Scenario:  s,
		Variation: v,
		Attempt:   attempt,
		Feedback:  feedback,
		Prompt:    prompt,
	}
}

// UserPrompt оборачивает составленный промпт в инструкцию генерации
// с требованием JSON-формата вывода.
func (c *Composer) UserPrompt(req model.GenerationRequest) string {
	return fmt.Sprintf(`You are tasked with generating a realistic debt collection phone conversation based on the provided system prompt and scenario requirements.

Generate a complete conversation between the debt collection agent and the customer. The conversation should:
1. Follow the system prompt guidelines exactly
2. Include the required special tags naturally in the conversation
3. Be realistic and natural, not scripted
4. Show appropriate progression through the conversation states
5. Include realistic customer responses and agent handling

Format the output as a JSON array where each message has "role" (either "assistant" for agent or "user" for customer) and "content" (the message text).

The conversation should start with the agent's opening and continue until a natural conclusion.

System Prompt and Scenario:
%s

Generate the conversation now:`, req.Prompt)
}

// SystemPrompt возвращает системный промпт генератора.
func (c *Composer) SystemPrompt() string {
	return generatorSystemPrompt
}

// substituteVariables подставляет значения вариации в плейсхолдеры
// базового промпта.
func substituteVariables(basePrompt string, v model.VariationParameters) string {
	firstName := v.CustomerName
	lastName := ""
	if idx := strings.IndexByte(v.CustomerName, ' '); idx >= 0 {
		firstName = v.CustomerName[:idx]
		lastName = v.CustomerName[strings.LastIndexByte(v.CustomerName, ' ')+1:]
	}

	prompt := strings.ReplaceAll(basePrompt, "{FirstName}", firstName)
	prompt = strings.ReplaceAll(prompt, "{LastName}", lastName)
	prompt = strings.ReplaceAll(prompt, "{amount}", amountWords(v.DebtAmount))
	prompt = strings.ReplaceAll(prompt, "{DueDate}", dueDateWords(v.DueDate))
	prompt = strings.ReplaceAll(prompt, defaultAgentName, v.AgentName)
	return prompt
}

// scenarioInstructions формирует блок сценарных инструкций с
// перечислением обязательных тегов.
func scenarioInstructions(s *model.ScenarioDefinition) string {
	tags := strings.Join(s.SpecialTags, ", ")
	return fmt.Sprintf(`

## SCENARIO-SPECIFIC INSTRUCTIONS FOR THIS CONVERSATION:

**Scenario Type:** %s
**Description:** %s
**Customer Behavior:** %s
**Expected Outcome:** %s
**Required Special Tags:** %s

**Conversation Requirements:**
- The conversation MUST include at least one of these special tags: %s
- Customer should exhibit behavior consistent with: %s
- The conversation should naturally lead to outcome: %s
- Make the conversation realistic and natural, not scripted
- Include appropriate emotional responses and realistic dialogue
- Ensure the agent follows the guided conversation rules from the base prompt

**Special Instructions:**
%s
`, s.Name, s.Description, s.CustomerBehavior, s.Outcome, tags, tags, s.CustomerBehavior, s.Outcome, specialInstructions(s))
}

// specialInstructions возвращает дополнительные инструкции по семейству
// сценария.
func specialInstructions(s *model.ScenarioDefinition) string {
	switch {
	case strings.Contains(s.ID, "wrong_person"):
		return "- The person answering is NOT the debtor\n- Agent must handle according to regulations\n- May need to transfer or disconnect"
	case strings.Contains(s.ID, "hostile"):
		return "- Customer becomes aggressive or angry\n- Agent must remain professional\n- May need to disconnect if too hostile"
	case strings.Contains(s.ID, "legal"):
		return "- Customer raises legal issues\n- Agent must follow legal protocols\n- May require escalation or transfer"
	case strings.Contains(s.ID, "payment") && strings.Contains(s.ID, "willing"):
		return "- Customer is cooperative and willing to pay\n- Focus on securing specific payment date\n- Use function_1 tag for payment processing"
	case strings.Contains(s.ID, "technical"):
		return "- Technical issues affect the call quality\n- May need to disconnect and callback\n- Handle technical problems professionally"
	case strings.Contains(s.CustomerBehavior, "vulnerable"):
		return "- Customer needs special handling\n- Be extra careful and considerate\n- May need to transfer to specialist"
	default:
		return "- Follow standard debt collection procedures\n- Adapt to customer responses naturally\n- Include required special tags appropriately"
	}
}

// amountWords отображает сумму долга в текст для подстановки в промпт.
func amountWords(amountAED int) string {
	return fmt.Sprintf("%d dirhams", amountAED)
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var dayOrdinals = [...]string{
	"first", "second", "third", "fourth", "fifth",
	"sixth", "seventh", "eighth", "ninth", "tenth",
	"eleventh", "twelfth", "thirteenth", "fourteenth", "fifteenth",
	"sixteenth", "seventeenth", "eighteenth", "nineteenth", "twentieth",
	"twenty-first", "twenty-second", "twenty-third", "twenty-fourth", "twenty-fifth",
	"twenty-sixth", "twenty-seventh", "twenty-eighth", "twenty-ninth", "thirtieth", "thirty-first",
}

// dueDateWords отображает дату в естественный формат вида "August first".
func dueDateWords(t time.Time) string {
	return monthNames[int(t.Month())-1] + " " + dayOrdinals[t.Day()-1]
}
