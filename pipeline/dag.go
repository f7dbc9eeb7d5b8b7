package pipeline

import (
	"fmt"
	"sort"

	"github.com/closeloop/actionpipe/model"
)

type CycleError struct {
	ActionIds []string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("dependency cycle among sub-actions %v", e.ActionIds)
}

// SortSubActions orders sub-actions so every dependency precedes its
// dependents. dependsOn entries must reference sibling sub-actions; an
// unknown reference or a cycle fails the whole main action. Ties break on
// priority, then id, to keep runs deterministic.
func SortSubActions(subs []*model.ProposedAction) ([]*model.ProposedAction, error) {
	byId := make(map[string]*model.ProposedAction, len(subs))
	for _, sub := range subs {
		if _, dup := byId[sub.Id]; dup {
			return nil, fmt.Errorf("duplicate sub-action id %s", sub.Id)
		}
		byId[sub.Id] = sub
	}

	indegree := make(map[string]int, len(subs))
	dependents := make(map[string][]string, len(subs))
	for _, sub := range subs {
		indegree[sub.Id] += 0
		for _, dep := range sub.DependsOn {
			if _, ok := byId[dep]; !ok {
				return nil, fmt.Errorf("sub-action %s depends on unknown sibling %s", sub.Id, dep)
			}
			indegree[sub.Id]++
			dependents[dep] = append(dependents[dep], sub.Id)
		}
	}

	ready := make([]*model.ProposedAction, 0, len(subs))
	for _, sub := range subs {
		if indegree[sub.Id] == 0 {
			ready = append(ready, sub)
		}
	}

	sorted := make([]*model.ProposedAction, 0, len(subs))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			if ready[i].Priority != ready[j].Priority {
				return ready[i].Priority > ready[j].Priority
			}
			return ready[i].Id < ready[j].Id
		})
		next := ready[0]
		ready = ready[1:]
		sorted = append(sorted, next)
		for _, depId := range dependents[next.Id] {
			indegree[depId]--
			if indegree[depId] == 0 {
				ready = append(ready, byId[depId])
			}
		}
	}

	if len(sorted) != len(subs) {
		remaining := make([]string, 0)
		done := make(map[string]bool, len(sorted))
		for _, sub := range sorted {
			done[sub.Id] = true
		}
		for _, sub := range subs {
			if !done[sub.Id] {
				remaining = append(remaining, sub.Id)
			}
		}
		sort.Strings(remaining)
		return nil, CycleError{ActionIds: remaining}
	}
	return sorted, nil
}
