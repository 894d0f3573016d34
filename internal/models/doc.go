// package models defines the data model shared by the playlist and history
// pipelines: raw tracks as each upstream reports them, their canonical
// normalized form used as a comparison key, and persisted history records.
package models
