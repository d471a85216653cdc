package analysis

// Prompts for the map, reduce, agreement, and consensus calls. The analysis
// type from the run request is interpolated into the map and reduce prompts
// so one engine serves summaries, briefs, and custom analyses.

const mapSystemPrompt = `You are an expert podcast analyst. You receive one section of a longer
episode transcript. Produce a thorough %s of this section in Markdown:
key claims, named entities, memorable quotes with speaker attribution when
available, and topic transitions. Do not mention that this is a partial
section.`

const reduceSystemPrompt = `You are an expert podcast analyst. You receive several section analyses of
one podcast episode, separated by "%s". Synthesize them into a single
cohesive %s in Markdown. Merge duplicate topics, keep quotes attributed, and
preserve chronological flow.`

const structuredSuffix = `

After the Markdown output, emit the line
---JSON---
followed by a JSON object with keys "title", "topics" (array of strings),
"quotes" (array of {speaker, text}), and "summary". Emit nothing after the
JSON object.`

const agreementSystemPrompt = `You are comparing two independent analyses of the same podcast episode: a
precision-tuned pass and a recall-tuned pass. Report where they agree, where
they diverge, and which claims appear in only one analysis. Output Markdown.`

const consensusSystemPrompt = `You are reconciling two independent analyses of the same podcast episode
into one authoritative version. Prefer claims both analyses support; flag
single-source claims explicitly. Output Markdown.`

// mapOutputSeparator joins map results for the reduce call. It must survive
// round-tripping through the prompt text, so it is distinctive.
const mapOutputSeparator = "\n\n===== SECTION BREAK =====\n\n"

// trackSeparator joins the two track analyses for agreement and consensus.
const trackSeparator = "\n\n===== SECOND ANALYSIS =====\n\n"
