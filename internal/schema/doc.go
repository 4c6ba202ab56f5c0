// Package schema defines the persisted rewardbook document.
//
// # Overview
//
// All application state lives in a single JSON document per installation:
// the version block, the user's balance and ledger, the task template and
// product catalogs, and the history of timed task executions. Keys are
// camelCase and timestamps are epoch milliseconds so that documents exported
// by earlier releases can be imported unchanged.
//
//	{
//	  "version": {"version": "1.2.0", "schemaVersion": 3, "createdAt": 1704067200000, "updatedAt": 1704067200000},
//	  "userData": {
//	    "points": 42,
//	    "pointRecords": [
//	      {"id": "…", "type": "earn", "amount": 25, "description": "完成任务: 刷题 (25分钟)", "timestamp": 1704069000000, "relatedId": "3"}
//	    ],
//	    "inventory": [],
//	    "customStyle": {}
//	  },
//	  "taskTemplates": [{"id": "3", "name": "刷题", "description": "进行题目练习", "isPreset": true, "createdAt": 1704067200000}],
//	  "products": [],
//	  "taskExecutions": []
//	}
//
// # Identity
//
// Every entity has a surrogate id used for references (a point record's
// relatedId, an execution's taskTemplateId). Template and product names are
// display values; the merge engine uses them as natural keys but nothing
// else does.
//
// # Executions
//
// An execution moves running -> paused -> running ... -> completed. At most
// one execution may be running or paused at a time; see
// [Document.ActiveExecution] and [ExecutionStatus.CanTransition].
//
// # Usage Examples
//
// Decoding and validating a stored document:
//
//	doc, err := schema.Decode(data)
//	if err != nil {
//	    return err
//	}
//	if err := doc.Validate(); err != nil {
//	    return err
//	}
//	fmt.Println(doc.UserData.Points)
package schema
