package graphql

const noteFields = `id clientId name description completed`

const listNotesQuery = `query ListNotes($limit: Int, $nextToken: String) {
  listNotes(limit: $limit, nextToken: $nextToken) {
    items { ` + noteFields + ` }
    nextToken
  }
}`

const createNoteMutation = `mutation CreateNote($input: CreateNoteInput!) {
  createNote(input: $input) { ` + noteFields + ` }
}`

const updateNoteMutation = `mutation UpdateNote($input: UpdateNoteInput!) {
  updateNote(input: $input) { id completed }
}`

const deleteNoteMutation = `mutation DeleteNote($input: DeleteNoteInput!) {
  deleteNote(input: $input) { id }
}`

const onCreateNoteSubscription = `subscription OnCreateNote {
  onCreateNote { ` + noteFields + ` }
}`

// Operation names as sent in "operationName".
const (
	opNameListNotes    = "ListNotes"
	opNameCreateNote   = "CreateNote"
	opNameUpdateNote   = "UpdateNote"
	opNameDeleteNote   = "DeleteNote"
	opNameOnCreateNote = "OnCreateNote"
)
