package handler

import (
	"fmt"

	"github.com/closeloop/actionpipe/model"
)

func errMissingContent(fields string) error {
	return fmt.Errorf("workflow response missing fields: %s", fields)
}

func errContentNotComposed(action *model.ProposedAction) error {
	return fmt.Errorf("action %s has uncomposed content fields, refusing to execute", action.Id)
}
