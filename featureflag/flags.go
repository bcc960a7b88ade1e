package featureflag

type Flag string

const (
	// FlagExactBallQuery makes ball queries drop objects farther than the
	// radius when the request does not choose.
	FlagExactBallQuery Flag = "EXACT_BALL_QUERY"

	FlagDisableDagaz       Flag = "DISABLE_DAGAZ"
	FlagDisableQueryStream Flag = "DISABLE_QUERY_STREAM"
)

func (f Flag) String() string {
	return string(f)
}
