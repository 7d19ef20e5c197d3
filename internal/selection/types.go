package selection

import "attrfilter/domain"

// State holds the working (draft) and committed (confirmed) selections
type State struct {
	Working   domain.Selection
	Committed domain.Selection
}
