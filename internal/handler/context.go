package handler

type ContextKey string

var (
	SubCtxKey   ContextKey = "sub"
	PlaceSetCtx ContextKey = "placeSet"
)
