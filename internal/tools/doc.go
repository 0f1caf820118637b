// Package tools implements the external data clients the advisor engine
// calls between turns: OpenWeather direct geocoding, the OpenWeather One
// Call forecast API, and Tavily web search.
//
// Every failure is wrapped in ErrTool. Callers treat tool failures as
// non-fatal: a turn degrades to whatever context is already cached.
package tools
