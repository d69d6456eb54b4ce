package mcpserver

// NoteFormatContract describes the block document format that LLM consumers
// should follow when creating notes.
const NoteFormatContract = `# Sheaf Note Format Contract

A note is a title plus a block document. The document is a JSON array of
blocks; a bare block object is not a document.

## Block

` + "```" + `json
{
  "type": "paragraph",
  "props": {},
  "content": [ { "type": "text", "text": "Hello", "styles": { "bold": true } } ],
  "children": []
}
` + "```" + `

- ` + "`type`" + ` is one of: paragraph, heading, quote, image, bulletListItem,
  numberedListItem, checkListItem, codeBlock. Other types are kept but render
  as plain paragraphs.
- ` + "`props`" + ` by type:
  - heading: ` + "`level`" + ` 1 to 3 (larger values render as 3).
  - image: ` + "`url`" + `, optional ` + "`caption`" + `.
  - codeBlock: optional ` + "`language`" + ` (e.g. go, js, python).
- ` + "`content`" + ` is a list of inline nodes:
  - text: ` + "`{\"type\":\"text\",\"text\":\"...\",\"styles\":{...}}`" + ` with styles
    bold, italic, underline, strike, code.
  - link: ` + "`{\"type\":\"link\",\"href\":\"https://...\",\"content\":[text...]}`" + `.
    Links never contain links.
- ` + "`children`" + ` nests blocks (list indentation). Nested blocks are flattened
  to plain text in printed output.

## Rules

1. **The document is an array.** An empty note is ` + "`[]`" + `.
2. **Title** is a plain string. When empty, the first heading is used.
3. **Tags** come from the note's tag list and from ` + "`#tag`" + ` words in the text.
4. **Links** use http(s) or mailto URLs; script URLs are neutralised on export.
5. **Encoding** is UTF-8.

## Example

` + "```" + `json
[
  { "type": "heading", "props": { "level": 1 }, "content": [ { "type": "text", "text": "Weekly standup" } ] },
  { "type": "paragraph", "content": [ { "type": "text", "text": "Attendees: Alice, Bob. #meeting-notes" } ] },
  { "type": "bulletListItem", "content": [ { "type": "text", "text": "Review the " },
    { "type": "link", "href": "https://example.com/design", "content": [ { "type": "text", "text": "design doc" } ] } ] },
  { "type": "codeBlock", "props": { "language": "go" }, "content": [ { "type": "text", "text": "fmt.Println(\"hi\")" } ] }
]
` + "```" + `
`
