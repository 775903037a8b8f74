package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for retrieval and generation spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrEmbedTextCount  = attribute.Key("llm.embed.text_count")
	AttrEmbedDimensions = attribute.Key("llm.embed.dimensions")

	AttrQueryWords      = attribute.Key("query.word_count")
	AttrRouteBackend    = attribute.Key("route.backend")
	AttrRouteReason     = attribute.Key("route.reason")
	AttrRouteForced     = attribute.Key("route.forced")
	AttrRouteHasContext = attribute.Key("route.has_context")
)
