package consts

import "time"

// Tunable Options
const (
	// For Client Proxies
	// CLIENT_PROXY_SEND_QUEUE_SIZE is the default number of outbound frames buffered per client
	CLIENT_PROXY_SEND_QUEUE_SIZE = 256
	// CLIENT_PROXY_WRITE_TIMEOUT is the write deadline for a single frame to a client
	CLIENT_PROXY_WRITE_TIMEOUT = time.Second * 10
	// CLIENT_PROXY_MAX_MESSAGE_SIZE is the maximal size of an inbound message
	CLIENT_PROXY_MAX_MESSAGE_SIZE = 1024 * 1024

	// For Maps
	// MAX_MAP_DIMENSION is the maximal width or height of a tile grid
	MAX_MAP_DIMENSION = 10000
	// MIN_MAP_DIMENSION is the minimal width or height of a tile grid
	MIN_MAP_DIMENSION = 1
	// MAX_GROUP_NAME_LEN is the maximal length of a group name
	MAX_GROUP_NAME_LEN = 15
	// MAX_LAYER_NAME_LEN is the maximal length of a layer name
	MAX_LAYER_NAME_LEN = 11
	// MAX_ROOM_NAME_LEN is the maximal length of a room name
	MAX_ROOM_NAME_LEN = 64
	// DEFAULT_MAP_WIDTH is the width of a blank map when none is given
	DEFAULT_MAP_WIDTH = 100
	// DEFAULT_MAP_HEIGHT is the height of a blank map when none is given
	DEFAULT_MAP_HEIGHT = 50

	// For Storage
	// STORAGE_WARN_THRESHOLD is the duration after which a storage operation is reported as slow
	STORAGE_WARN_THRESHOLD = time.Millisecond * 100
	// STORAGE_LIST_WARN_THRESHOLD is the same threshold for listing maps
	STORAGE_LIST_WARN_THRESHOLD = time.Second

	// For Rooms
	// ROOM_REQUEST_WARN_THRESHOLD is the duration after which a room request is reported as slow
	ROOM_REQUEST_WARN_THRESHOLD = time.Millisecond * 100

	// For Operation Monitor
	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output
	OPMON_DUMP_INTERVAL = 0
)

// Debug Options
const (
	// DEBUG_PACKETS prints message send/recv debug logs
	DEBUG_PACKETS = false
	// DEBUG_SAVE_LOAD prints save & load debug logs
	DEBUG_SAVE_LOAD = false
	// DEBUG_CLIENTS prints clients operation debug logs
	DEBUG_CLIENTS = false
	// DEBUG_ROOMS prints room join & leave debug logs
	DEBUG_ROOMS = false
)
