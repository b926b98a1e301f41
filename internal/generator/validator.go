package generator

import (
	"fmt"
	"strings"

	"dialogue-generator/internal/config"
	"dialogue-generator/internal/model"
	"dialogue-generator/internal/scenario"
)

// Validator проверяет транскрипт против правил сценария и конфигурации.
// Чистая функция от (транскрипт, сценарий, конфигурация): состояния нет.
type Validator struct {
	threshold  float64
	minTurns   int
	redFlags   []string
	indicators map[string][]string
	allTags    []string
}

// NewValidator создает Validator из конфигурации.
func NewValidator(cfg *config.Config) *Validator {
	return &Validator{
		threshold:  cfg.QualityThreshold,
		minTurns:   cfg.MinTurns,
		redFlags:   cfg.RedFlags,
		indicators: cfg.GetQualityIndicators(),
		allTags:    scenario.SpecialTags,
	}
}

// Validate оценивает один транскрипт. Все проверки выполняются без
// короткого замыкания: каждое нарушенное правило попадает в Issues.
// Порядок: теги, качество, структура.
func (v *Validator) Validate(t model.Transcript, s *model.ScenarioDefinition) model.ValidationOutcome {
	if len(t) == 0 {
		return model.ValidationOutcome{
			Passed:          false,
			QualityScore:    0,
			TagsFound:       []string{},
			TagsMissing:     append([]string{}, s.SpecialTags...),
			Issues:          []model.Issue{"empty conversation"},
			Recommendations: []string{"Generate a non-empty conversation"},
		}
	}

	found := v.findSpecialTags(t)
	missing := missingTags(s.SpecialTags, found)
	score := v.qualityScore(t)
	fatal := hasFatalViolation(t)

	var issues []model.Issue
	for _, tag := range missing {
		issues = append(issues, model.Issue(fmt.Sprintf("missing required tag %s", normalizeTag(tag))))
	}
	if score < v.threshold {
		issues = append(issues, model.Issue(fmt.Sprintf("quality_score %.2f below threshold %.2f", score, v.threshold)))
	}
	issues = append(issues, v.structuralIssues(t, s)...)

	passed := len(missing) == 0 && score >= v.threshold && !fatal

	return model.ValidationOutcome{
		Passed:          passed,
		QualityScore:    score,
		TagsFound:       found,
		TagsMissing:     missing,
		Issues:          issues,
		Recommendations: v.recommendations(t, missing),
	}
}

// findSpecialTags ищет все известные теги в транскрипте. Модели пишут
// теги в разных форматах: (tag), <tag> или голым словом, поэтому
// проверяем несколько вариантов.
func (v *Validator) findSpecialTags(t model.Transcript) []string {
	present := make(map[string]bool)
	for _, turn := range t {
		content := strings.ToLower(turn.Content)
		for _, tag := range v.allTags {
			name := strings.Trim(tag, "()")
			if strings.Contains(content, tag) ||
				strings.Contains(content, "<"+name+">") ||
				strings.Contains(content, " "+name) ||
				strings.Contains(content, name+" ") ||
				strings.HasSuffix(content, name) ||
				strings.HasPrefix(content, name) {
				present[tag] = true
			}
		}
	}

	// Порядок каталога, чтобы результат был детерминированным
	found := make([]string, 0, len(present))
	for _, tag := range v.allTags {
		if present[tag] {
			found = append(found, tag)
		}
	}
	return found
}

// normalizeTag приводит тег к каноническому виду со скобками.
func normalizeTag(tag string) string {
	if strings.HasPrefix(tag, "(") {
		return tag
	}
	return "(" + tag + ")"
}

// missingTags возвращает обязательные теги, не найденные в транскрипте,
// в исходном формате сценария.
func missingTags(required, found []string) []string {
	foundSet := make(map[string]bool, len(found))
	for _, tag := range found {
		foundSet[tag] = true
	}

	missing := []string{}
	for _, tag := range required {
		if !foundSet[normalizeTag(tag)] {
			missing = append(missing, tag)
		}
	}
	return missing
}

// qualityScore вычисляет оценку качества в [0..1]: средняя доля
// найденных индикаторов по категориям плюс структурная оценка, минус
// штраф за красные флаги.
func (v *Validator) qualityScore(t model.Transcript) float64 {
	fullText := strings.ToLower(joinContent(t))

	var scores []float64
	for _, indicators := range v.indicators {
		foundCount := 0
		for _, phrase := range indicators {
			if strings.Contains(fullText, phrase) {
				foundCount++
			}
		}
		// Для максимальной оценки достаточно 30% фраз категории
		score := float64(foundCount) / (float64(len(indicators)) * 0.3)
		if score > 1 {
			score = 1
		}
		scores = append(scores, score)
	}

	scores = append(scores, v.structureScore(t))

	var sum float64
	for _, s := range scores {
		sum += s
	}
	base := sum / float64(len(scores))

	redFlagCount := 0
	for _, flag := range v.redFlags {
		if strings.Contains(fullText, flag) {
			redFlagCount++
		}
	}
	final := base - float64(redFlagCount)*0.3

	if final < 0 {
		return 0
	}
	if final > 1 {
		return 1
	}
	return final
}

// structureScore оценивает структуру диалога: длину, чередование ролей
// и разумность длин реплик.
func (v *Validator) structureScore(t model.Transcript) float64 {
	if len(t) < 3 {
		return 0.2
	}
	if len(t) > 30 {
		return 0.7
	}
	return (v.alternationScore(t) + v.lengthScore(t)) / 2
}

// alternationScore: диалог должен начинаться с агента, роли должны
// чередоваться. Нарушение чередования - мягкое, снижает оценку.
func (v *Validator) alternationScore(t model.Transcript) float64 {
	if t[0].Role != model.RoleAssistant {
		return 0.5
	}
	violations := 0
	for i := 1; i < len(t); i++ {
		if t[i].Role == t[i-1].Role {
			violations++
		}
	}
	score := 1.0 - float64(violations)/float64(len(t))
	if score < 0 {
		return 0
	}
	return score
}

// lengthScore штрафует экстремально короткие и длинные реплики.
func (v *Validator) lengthScore(t model.Transcript) float64 {
	outliers := 0
	for _, turn := range t {
		n := len(turn.Content)
		if n < 10 || n > 500 {
			outliers++
		}
	}
	score := 1.0 - float64(outliers)/float64(len(t))
	if score < 0 {
		return 0
	}
	return score
}

// hasFatalViolation: пустой транскрипт и пустые реплики фатальны;
// остальные структурные нарушения только снижают оценку.
func hasFatalViolation(t model.Transcript) bool {
	if len(t) == 0 {
		return true
	}
	for _, turn := range t {
		if strings.TrimSpace(turn.Content) == "" {
			return true
		}
	}
	return false
}

// structuralIssues собирает структурные замечания к транскрипту.
func (v *Validator) structuralIssues(t model.Transcript, s *model.ScenarioDefinition) []model.Issue {
	var issues []model.Issue

	empty := 0
	for _, turn := range t {
		if strings.TrimSpace(turn.Content) == "" {
			empty++
		}
	}
	if empty > 0 {
		issues = append(issues, model.Issue(fmt.Sprintf("%d empty messages found", empty)))
	}

	if len(t) < v.minTurns {
		issues = append(issues, model.Issue(fmt.Sprintf("conversation too short (less than %d exchanges)", v.minTurns)))
	}

	for i := 1; i < len(t); i++ {
		if t[i].Role == t[i-1].Role {
			issues = append(issues, model.Issue(fmt.Sprintf("consecutive turns from role '%s' at position %d", t[i].Role, i)))
			break
		}
	}

	if len(t[len(t)-1].Content) < 20 {
		issues = append(issues, "conversation ending seems abrupt")
	}

	issues = append(issues, scenarioIssues(t, s.ID)...)
	return issues
}

// scenarioIssues - проверки, специфичные для семейства сценария.
func scenarioIssues(t model.Transcript, scenarioID string) []model.Issue {
	fullText := strings.ToLower(joinContent(t))

	var issues []model.Issue
	switch {
	case strings.Contains(scenarioID, "wrong_person"):
		if !strings.Contains(fullText, "transfer") && !strings.Contains(fullText, "wrong") {
			issues = append(issues, "wrong person scenario should mention transfer or wrong person")
		}
	case strings.Contains(scenarioID, "hostile"):
		if !strings.Contains(fullText, "angry") && !strings.Contains(fullText, "upset") && !strings.Contains(fullText, "frustrated") {
			issues = append(issues, "hostile scenario should show customer anger or frustration")
		}
	case strings.Contains(scenarioID, "payment_willing"):
		if !strings.Contains(fullText, "pay") {
			issues = append(issues, "payment willing scenario should discuss payment")
		}
	case strings.Contains(scenarioID, "legal"):
		if !strings.Contains(fullText, "legal") && !strings.Contains(fullText, "attorney") && !strings.Contains(fullText, "lawyer") {
			issues = append(issues, "legal scenario should mention legal terms")
		}
	}
	return issues
}

// recommendations формирует рекомендации по улучшению для фидбека.
func (v *Validator) recommendations(t model.Transcript, missing []string) []string {
	var recs []string

	if len(missing) > 0 {
		normalized := make([]string, len(missing))
		for i, tag := range missing {
			normalized[i] = normalizeTag(tag)
		}
		recs = append(recs, "Include required special tags: "+strings.Join(normalized, ", "))
	}

	if len(t) < v.minTurns {
		recs = append(recs, fmt.Sprintf("Extend conversation to at least %d exchanges", v.minTurns))
	}
	if len(t) > 20 {
		recs = append(recs, "Consider shortening conversation for better focus")
	}

	fullText := strings.ToLower(joinContent(t))
	if !strings.Contains(fullText, "thank you") {
		recs = append(recs, "Add more polite language and courtesy")
	}
	if !strings.Contains(fullText, "payment") && !strings.Contains(fullText, "debt") {
		recs = append(recs, "Ensure debt collection purpose is clear")
	}

	return recs
}

func joinContent(t model.Transcript) string {
	parts := make([]string, len(t))
	for i, turn := range t {
		parts[i] = turn.Content
	}
	return strings.Join(parts, " ")
}
