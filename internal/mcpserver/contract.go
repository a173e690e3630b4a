package mcpserver

// PageFormatContract describes the block-outline grammar that every
// page written through the tool surface must satisfy.
const PageFormatContract = `# Recursa Page Format Contract

Every page stored in Recursa is a block outline. Writes that violate
this grammar are rejected with the full list of violations.

## Structure

` + "```" + `
- Top-level block
  - Child block, indented by exactly 2 spaces
    - Grandchild block
  - type:: value
- Another top-level block referencing [[Some Page]]
` + "```" + `

## Rules

1. **Every non-blank line is a block.** After leading spaces it must
   start with ` + "`" + `- ` + "`" + ` (dash, space).
2. **Indentation is 2 spaces per level.** Any other leading-space count
   is a violation.
3. **Nesting deepens one level at a time.** A block may repeat the
   current level, return to any shallower level, or go exactly one
   level deeper.
4. **Properties** use ` + "`" + `key:: value` + "`" + ` syntax on a block of its own and
   are not allowed at the document root (nest them under a block).
5. **Wikilinks** use double brackets: ` + "`" + `[[Other Page]]` + "`" + `. The target is
   the filename stem, no ` + "`" + `.md` + "`" + ` extension.
6. **Blank lines** are ignored and carry no structure.
7. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
8. **Encoding** is UTF-8.

## Example

` + "```" + `
- # Ada Lovelace
  - type:: person
  - born:: 1815
  - Collaborated with [[Charles Babbage]] on the [[Analytical Engine]].
` + "```" + `
`
