package obs

import "go.opentelemetry.io/otel/attribute"

func sourceAttr(source string) attribute.KeyValue   { return attribute.String("source", source) }
func strategyAttr(strategy string) attribute.KeyValue { return attribute.String("strategy", strategy) }
