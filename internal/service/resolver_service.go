package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/campus-hq/timetable-api/internal/dto"
	"github.com/campus-hq/timetable-api/internal/models"
	"github.com/campus-hq/timetable-api/pkg/config"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
)

// ResolverSnapshot extends the detection snapshot with the reference data the
// strategies search over.
type ResolverSnapshot struct {
	TimetableSnapshot
	Faculty []models.Faculty
}

// ResolverService searches for alternative placements that clear a candidate's
// conflicts. Strategies only evaluate hypothetical candidates through the
// conflict detector; nothing is committed here.
type ResolverService struct {
	detector *ConflictService
	cfg      config.ResolverConfig
	logger   *zap.Logger
}

// NewResolverService wires the strategy engine.
func NewResolverService(detector *ConflictService, cfg config.ResolverConfig, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDaysAhead <= 0 {
		cfg.MaxDaysAhead = 14
	}
	if cfg.MaxHoursAhead <= 0 {
		cfg.MaxHoursAhead = 8
	}
	if cfg.MaxParallelChecks <= 0 {
		cfg.MaxParallelChecks = 8
	}
	if cfg.MaxSolutions <= 0 {
		cfg.MaxSolutions = 5
	}
	return &ResolverService{detector: detector, cfg: cfg, logger: logger}
}

// Resolve runs the enabled strategies in ascending priority order and returns
// ranked solutions, best first. An empty list means no strategy cleared the
// conflicts and the caller must fall back to manual or forced resolution.
func (s *ResolverService) Resolve(
	ctx context.Context,
	candidate models.ScheduledEntry,
	conflicts []models.Conflict,
	strategies []dto.StrategyConfig,
	snapshot ResolverSnapshot,
	maxSolutions int,
) ([]dto.Solution, error) {
	if len(strategies) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one strategy must be enabled")
	}
	for _, strategy := range strategies {
		if err := validateStrategyConfig(strategy); err != nil {
			return nil, err
		}
	}
	if maxSolutions <= 0 || maxSolutions > s.cfg.MaxSolutions {
		maxSolutions = s.cfg.MaxSolutions
	}

	ordered := make([]dto.StrategyConfig, len(strategies))
	copy(ordered, strategies)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	solutions := make([]dto.Solution, 0)
	for _, strategy := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve aborted")
		}

		var found []dto.Solution
		var err error
		switch strategy.Kind {
		case dto.StrategyNextSlot:
			found, err = s.nextSlot(ctx, candidate, strategy, snapshot)
		case dto.StrategyNextDay:
			found, err = s.nextDay(ctx, candidate, strategy, snapshot)
		case dto.StrategyAlternativeFaculty:
			found, err = s.alternativeFaculty(ctx, candidate, strategy, snapshot)
		case dto.StrategySplitSession:
			found, err = s.splitSession(ctx, candidate, strategy, snapshot)
		case dto.StrategyRescheduleExisting:
			found, err = s.rescheduleExisting(ctx, candidate, conflicts, strategy, snapshot)
		}
		if err != nil {
			return nil, err
		}
		solutions = append(solutions, found...)
		if len(solutions) >= maxSolutions {
			break
		}
	}

	sort.SliceStable(solutions, func(i, j int) bool {
		if solutions[i].Score != solutions[j].Score {
			return solutions[i].Score > solutions[j].Score
		}
		return solutions[i].StrategyPriority < solutions[j].StrategyPriority
	})
	if len(solutions) > maxSolutions {
		solutions = solutions[:maxSolutions]
	}
	return solutions, nil
}

// strategyParams maps each strategy kind to the parameters it owns. Every
// other parameter is rejected so a typoed or misplaced field never passes
// silently.
var strategyParams = map[dto.StrategyKind]map[string]bool{
	dto.StrategyNextSlot:           {"maxHoursAhead": true, "sameDayOnly": true},
	dto.StrategyNextDay:            {"maxDaysAhead": true, "skipWeekends": true, "skipHolidays": true},
	dto.StrategyAlternativeFaculty: {"sameDepartmentOnly": true, "maxWeeklyLoad": true},
	dto.StrategySplitSession:       {"maxParts": true},
	dto.StrategyRescheduleExisting: {},
}

func validateStrategyConfig(cfg dto.StrategyConfig) error {
	owned, ok := strategyParams[cfg.Kind]
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown strategy kind %q", cfg.Kind))
	}
	set := []struct {
		name  string
		given bool
	}{
		{"maxHoursAhead", cfg.Params.MaxHoursAhead != 0},
		{"sameDayOnly", cfg.Params.SameDayOnly},
		{"maxDaysAhead", cfg.Params.MaxDaysAhead != 0},
		{"skipWeekends", cfg.Params.SkipWeekends},
		{"skipHolidays", cfg.Params.SkipHolidays},
		{"sameDepartmentOnly", cfg.Params.SameDepartmentOnly},
		{"maxWeeklyLoad", cfg.Params.MaxWeeklyLoad != 0},
		{"maxParts", cfg.Params.MaxParts != 0},
	}
	for _, field := range set {
		if field.given && !owned[field.name] {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("parameter %s is not valid for strategy %s", field.name, cfg.Kind))
		}
	}
	if cfg.Kind == dto.StrategySplitSession && (cfg.Params.MaxParts < 0 || cfg.Params.MaxParts == 1) {
		return appErrors.Clone(appErrors.ErrValidation, "split_session maxParts must be at least 2")
	}
	return nil
}

// evaluateAll runs the detector over every hypothetical candidate, fanning the
// independent checks across a bounded set of goroutines. Ranking callers see
// nothing until all checks have finished.
func (s *ResolverService) evaluateAll(ctx context.Context, candidates []models.ScheduledEntry, snapshot TimetableSnapshot) ([]bool, error) {
	cleared := make([]bool, len(candidates))
	sem := make(chan struct{}, s.cfg.MaxParallelChecks)
	var wg sync.WaitGroup

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			cleared[idx] = len(s.detector.Detect(candidates[idx], snapshot)) == 0
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict checks aborted")
	}
	return cleared, nil
}

func (s *ResolverService) nextSlot(ctx context.Context, candidate models.ScheduledEntry, strategy dto.StrategyConfig, snapshot ResolverSnapshot) ([]dto.Solution, error) {
	ordered := slotsInOrder(snapshot.Slots)
	current, ok := snapshot.Slots[candidate.TimeSlotID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "candidate time slot is unknown")
	}

	maxHours := strategy.Params.MaxHoursAhead
	if maxHours <= 0 {
		maxHours = s.cfg.MaxHoursAhead
	}
	horizon := current.StartMinutes + maxHours*60

	var hypotheticals []models.ScheduledEntry
	var slotIDs []string
	for _, slot := range ordered {
		if slot.ID == candidate.TimeSlotID || slot.SortOrder < current.SortOrder {
			continue
		}
		// Sort order and start time are independent, so an out-of-horizon
		// slot does not end the scan.
		if slot.StartMinutes > horizon {
			continue
		}
		alt := candidate
		alt.TimeSlotID = slot.ID
		hypotheticals = append(hypotheticals, alt)
		slotIDs = append(slotIDs, slot.ID)
	}

	cleared, err := s.evaluateAll(ctx, hypotheticals, snapshot.TimetableSnapshot)
	if err != nil {
		return nil, err
	}
	for i, ok := range cleared {
		if !ok {
			continue
		}
		deviation := float64(snapshot.Slots[slotIDs[i]].SortOrder - current.SortOrder)
		return []dto.Solution{{
			Strategy:         strategy.Kind,
			StrategyPriority: strategy.Priority,
			Score:            clampScore(100 - deviation*5),
			Entry:            toCandidateDTO(hypotheticals[i]),
			Notes:            fmt.Sprintf("moved to slot %s on the same day", snapshot.Slots[slotIDs[i]].Label),
		}}, nil
	}
	return nil, nil
}

func (s *ResolverService) nextDay(ctx context.Context, candidate models.ScheduledEntry, strategy dto.StrategyConfig, snapshot ResolverSnapshot) ([]dto.Solution, error) {
	maxDays := strategy.Params.MaxDaysAhead
	if maxDays <= 0 || maxDays > s.cfg.MaxDaysAhead {
		maxDays = s.cfg.MaxDaysAhead
	}

	var hypotheticals []models.ScheduledEntry
	var daysAhead []int
	for offset := 1; offset <= maxDays; offset++ {
		alt := candidate
		if candidate.Date != nil {
			date := candidate.Date.AddDate(0, 0, offset)
			day := models.DayOfWeekFromDate(date)
			if strategy.Params.SkipWeekends && models.IsWeekend(day) {
				continue
			}
			if strategy.Params.SkipHolidays {
				if _, holiday := snapshot.Calendar.HolidayOn(date); holiday {
					continue
				}
			}
			alt.Date = &date
			alt.DayOfWeek = day
		} else {
			day := shiftDay(candidate.DayOfWeek, offset)
			if strategy.Params.SkipWeekends && models.IsWeekend(day) {
				continue
			}
			alt.DayOfWeek = day
		}
		hypotheticals = append(hypotheticals, alt)
		daysAhead = append(daysAhead, offset)
	}

	cleared, err := s.evaluateAll(ctx, hypotheticals, snapshot.TimetableSnapshot)
	if err != nil {
		return nil, err
	}
	for i, ok := range cleared {
		if !ok {
			continue
		}
		return []dto.Solution{{
			Strategy:         strategy.Kind,
			StrategyPriority: strategy.Priority,
			Score:            clampScore(100 - float64(daysAhead[i])*8),
			Entry:            toCandidateDTO(hypotheticals[i]),
			Notes:            fmt.Sprintf("moved %d day(s) ahead, same time slot", daysAhead[i]),
		}}, nil
	}
	return nil, nil
}

func (s *ResolverService) alternativeFaculty(ctx context.Context, candidate models.ScheduledEntry, strategy dto.StrategyConfig, snapshot ResolverSnapshot) ([]dto.Solution, error) {
	department := ""
	if strategy.Params.SameDepartmentOnly {
		for _, f := range snapshot.Faculty {
			if f.ID == candidate.FacultyID {
				department = f.Department
				break
			}
		}
		if department == "" {
			return nil, nil
		}
	}

	weeklyLoad := make(map[string]int)
	for _, entry := range snapshot.Entries {
		if entry.Active {
			weeklyLoad[entry.FacultyID]++
		}
	}

	var hypotheticals []models.ScheduledEntry
	var loads []int
	for _, f := range snapshot.Faculty {
		if !f.Active || f.ID == candidate.FacultyID {
			continue
		}
		if strategy.Params.SameDepartmentOnly && f.Department != department {
			continue
		}
		ceiling := f.MaxWeeklyLoad
		if strategy.Params.MaxWeeklyLoad > 0 && (ceiling == 0 || strategy.Params.MaxWeeklyLoad < ceiling) {
			ceiling = strategy.Params.MaxWeeklyLoad
		}
		if ceiling > 0 && weeklyLoad[f.ID] >= ceiling {
			continue
		}
		alt := candidate
		alt.FacultyID = f.ID
		hypotheticals = append(hypotheticals, alt)
		loads = append(loads, weeklyLoad[f.ID])
	}

	cleared, err := s.evaluateAll(ctx, hypotheticals, snapshot.TimetableSnapshot)
	if err != nil {
		return nil, err
	}

	solutions := make([]dto.Solution, 0)
	for i, ok := range cleared {
		if !ok {
			continue
		}
		// Lighter-loaded substitutes rank higher.
		solutions = append(solutions, dto.Solution{
			Strategy:         strategy.Kind,
			StrategyPriority: strategy.Priority,
			Score:            clampScore(90 - float64(loads[i])*2),
			Entry:            toCandidateDTO(hypotheticals[i]),
			Notes:            fmt.Sprintf("substitute faculty %s, current weekly load %d", hypotheticals[i].FacultyID, loads[i]),
		})
	}
	return solutions, nil
}

func (s *ResolverService) splitSession(ctx context.Context, candidate models.ScheduledEntry, strategy dto.StrategyConfig, snapshot ResolverSnapshot) ([]dto.Solution, error) {
	maxParts := strategy.Params.MaxParts
	if maxParts < 2 {
		maxParts = 2
	}
	current, ok := snapshot.Slots[candidate.TimeSlotID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "candidate time slot is unknown")
	}
	target := current.EndMinutes - current.StartMinutes

	var hypotheticals []models.ScheduledEntry
	ordered := slotsInOrder(snapshot.Slots)
	for _, slot := range ordered {
		if slot.ID == candidate.TimeSlotID {
			continue
		}
		alt := candidate
		alt.TimeSlotID = slot.ID
		hypotheticals = append(hypotheticals, alt)
	}

	cleared, err := s.evaluateAll(ctx, hypotheticals, snapshot.TimetableSnapshot)
	if err != nil {
		return nil, err
	}

	var parts []models.ScheduledEntry
	covered := 0
	for i, ok := range cleared {
		if !ok {
			continue
		}
		slot := snapshot.Slots[hypotheticals[i].TimeSlotID]
		parts = append(parts, hypotheticals[i])
		covered += slot.EndMinutes - slot.StartMinutes
		if covered >= target || len(parts) >= maxParts {
			break
		}
	}
	if covered < target || len(parts) < 2 {
		return nil, nil
	}

	partDTOs := make([]dto.CandidateEntry, len(parts))
	for i, part := range parts {
		partDTOs[i] = toCandidateDTO(part)
	}
	return []dto.Solution{{
		Strategy:         strategy.Kind,
		StrategyPriority: strategy.Priority,
		Score:            clampScore(100 - 15 - float64(len(parts)-1)*3),
		Entry:            partDTOs[0],
		Parts:            partDTOs,
		Notes:            fmt.Sprintf("session split across %d slots covering %d minutes", len(parts), covered),
	}}, nil
}

// rescheduleExisting proposes moving a lower-priority colliding entry instead
// of the candidate. The result mutates an entry the caller did not submit, so
// it always requires an explicit human-approved follow-up commit.
func (s *ResolverService) rescheduleExisting(ctx context.Context, candidate models.ScheduledEntry, conflicts []models.Conflict, strategy dto.StrategyConfig, snapshot ResolverSnapshot) ([]dto.Solution, error) {
	solutions := make([]dto.Solution, 0)
	for _, conflict := range conflicts {
		if conflict.Entry == nil || conflict.Entry.Priority >= candidate.Priority {
			continue
		}
		moved, slotLabel, err := s.relocation(ctx, *conflict.Entry, candidate, snapshot)
		if err != nil {
			return nil, err
		}
		if moved == nil {
			continue
		}
		solutions = append(solutions, dto.Solution{
			Strategy:          strategy.Kind,
			StrategyPriority:  strategy.Priority,
			Score:             clampScore(75),
			Entry:             toCandidateDTO(candidate),
			RescheduleEntryID: conflict.Entry.ID,
			RequiresApproval:  true,
			Notes:             fmt.Sprintf("move existing entry %s to slot %s", conflict.Entry.ID, slotLabel),
		})
	}
	return solutions, nil
}

// relocation finds the first clear alternative slot for the displaced entry in
// a snapshot where the candidate already occupies its requested slot.
func (s *ResolverService) relocation(ctx context.Context, displaced, candidate models.ScheduledEntry, snapshot ResolverSnapshot) (*models.ScheduledEntry, string, error) {
	hypo := snapshot.TimetableSnapshot
	hypo.Entries = make([]models.ScheduledEntry, 0, len(snapshot.Entries)+1)
	for _, entry := range snapshot.Entries {
		if entry.ID == displaced.ID {
			continue
		}
		hypo.Entries = append(hypo.Entries, entry)
	}
	occupant := candidate
	occupant.Active = true
	hypo.Entries = append(hypo.Entries, occupant)

	var hypotheticals []models.ScheduledEntry
	for _, slot := range slotsInOrder(snapshot.Slots) {
		if slot.ID == displaced.TimeSlotID {
			continue
		}
		alt := displaced
		alt.TimeSlotID = slot.ID
		hypotheticals = append(hypotheticals, alt)
	}
	cleared, err := s.evaluateAll(ctx, hypotheticals, hypo)
	if err != nil {
		return nil, "", err
	}
	for i, ok := range cleared {
		if ok {
			slot := snapshot.Slots[hypotheticals[i].TimeSlotID]
			return &hypotheticals[i], slot.Label, nil
		}
	}
	return nil, "", nil
}

func slotsInOrder(slots map[string]models.TimeSlot) []models.TimeSlot {
	ordered := make([]models.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		ordered = append(ordered, slot)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SortOrder < ordered[j].SortOrder
	})
	return ordered
}

func shiftDay(day string, offset int) string {
	for i, name := range models.DaysInOrder {
		if name == day {
			return models.DaysInOrder[(i+offset)%len(models.DaysInOrder)]
		}
	}
	return day
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func toCandidateDTO(entry models.ScheduledEntry) dto.CandidateEntry {
	out := dto.CandidateEntry{
		BatchID:    entry.BatchID,
		SubjectID:  entry.SubjectID,
		FacultyID:  entry.FacultyID,
		TimeSlotID: entry.TimeSlotID,
		DayOfWeek:  entry.DayOfWeek,
		Kind:       string(entry.Kind),
		Priority:   entry.Priority,
	}
	if entry.Date != nil {
		out.Date = entry.Date.Format("2006-01-02")
	}
	return out
}
