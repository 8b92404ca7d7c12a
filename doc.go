/*
MapWorld is a real-time collaborative map editing server. Clients connect over WebSocket, join a named room and edit
the room's map together. Every accepted edit is applied to the in-memory map in arrival order and broadcast to every
client of the room, including the one that sent it, so all clients converge to the same map.

Rooms

A room is created for every map found in storage at startup, and clients can create more rooms from a blank map or
from a copy of another room. A room loads its map on the first access after it became empty and drops it from memory
when the last client leaves. Edits that have not been saved by a save request are lost at that point.

Maps

Maps are made of groups of layers. Exactly one layer is the game layer; it and the other physics layers live in one
physics group, always share one size and are resized together. Edits that break these rules, use invalid indexes or
resize a layer outside [1, 10000] are rejected and logged, the map stays unchanged and nothing is broadcast.

Storage

Maps are stored snappy compressed in msgpack format on the file system, MongoDB, Redis or Redis Cluster, configured in
the [storage] section of mapworld.ini.

Run server

	mapworld -configfile mapworld.ini [-log info] [-d]
*/
package mapworld
