// Package grammars registers every item-line grammar with the default
// registry. Import it for side effects.
package grammars

import (
	_ "koabot/internal/grammars/natural"
	_ "koabot/internal/grammars/separated"
)
