package leafdb

// pageState holds per-page cache flags.
type pageState uint8

const (
	pageLoaded pageState = 1 << iota
	pageDirty
)

func setFlag(b, flag pageState) pageState   { return b | flag }
func clearFlag(b, flag pageState) pageState { return b &^ flag }
func hasFlag(b, flag pageState) bool        { return b&flag != 0 }
