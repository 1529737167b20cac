package mcpserver

// CSVFormatContract describes the selection CSV that export writes and
// import reads.
const CSVFormatContract = `# idlepick selection CSV

Export writes ` + "`selected_games.csv`" + ` (UTF-8 with a byte order mark) next to
` + "`games.ps1`" + ` and ` + "`start.bat`" + `. Import accepts the same file, or any text
whose lines start with an app id.

## Export layout

` + "```" + `csv
appid,name
10,Counter-Strike
570,Dota 2
4000,"Garry's Mod, Deluxe"
` + "```" + `

- First line is always ` + "`appid,name`" + `.
- Rows are ordered by name, case-insensitively.
- A name containing a comma, a double quote or a line break is wrapped in
  double quotes with inner quotes doubled.
- A game the Steam API returned without a name is written as ` + "`Item {appid}`" + `.

## Import rules

1. A leading byte order mark is ignored.
2. Blank lines and lines starting with ` + "`appid`" + ` (any case) are ignored.
3. The text before the first comma must be an unsigned integer; other lines
   are skipped and counted.
4. Ids are merged into the current selection; nothing is deselected.
5. Ids that are not in the loaded catalog are kept but never exported.

## Script

` + "`games.ps1`" + ` idles the selection in groups of 30 games, in the order above.
`
